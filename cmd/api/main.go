// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	app "bondmarket/internal"
)

// shutdownGrace bounds draining in-flight trades and closing the stores.
const shutdownGrace = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.NewApplication()
	if err := application.Initialize(ctx); err != nil {
		application.Logger.Error("Failed to initialize marketplace", "error", err)
		os.Exit(1)
	}

	// No WriteTimeout: /ws/market streams indefinitely. Other routes are
	// bounded by the router's Timeout middleware.
	server := &http.Server{
		Addr:              ":" + application.Config.ServerPort,
		Handler:           application.HTTPHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		application.Logger.Info("Bond marketplace listening",
			"port", application.Config.ServerPort,
			"store", application.Config.StoreDriver,
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		application.Logger.Info("Draining HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return errors.Join(
			server.Shutdown(shutdownCtx),
			application.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		application.Logger.Error("Bond marketplace stopped with error", "error", err)
		os.Exit(1)
	}
	application.Logger.Info("Bond marketplace stopped")
}
