// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bondmarket/internal/api/handler"
	mw "bondmarket/internal/api/middleware"
	"bondmarket/internal/api/ws"
)

// RouterConfig carries the HTTP surface settings.
type RouterConfig struct {
	APIPrefix   string
	CORSOrigins []string
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(h *handler.MarketplaceHandler, hub *ws.Hub, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)     // Add a request ID to the context
	r.Use(middleware.RealIP)        // Use the real IP address
	r.Use(mw.Logging(logger))       // Log HTTP requests
	r.Use(middleware.Recoverer)     // Recover from panics and return 500
	r.Use(mw.CORS(cfg.CORSOrigins)) // Any origin by default

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}

	r.Route(prefix, func(r chi.Router) {
		// The event stream outlives any request deadline.
		r.Get("/ws/market", hub.ServeWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(handler.DefaultTimeout))

			r.Get("/", h.Root)
			r.Get("/bonds", h.ListBonds)
			r.Get("/bonds/{bondID}", h.GetBond)
			r.Get("/bonds/{bondID}/yield", h.GetBondYield)
			r.Post("/trade", h.ExecuteTrade)
			r.Get("/portfolio/{userAddress}", h.GetPortfolio)
			r.Get("/portfolio/{userAddress}/transactions", h.GetTransactionHistory)
			r.Get("/market-stats", h.GetMarketStats)
		})
	})

	return r
}
