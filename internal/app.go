// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	router "bondmarket/internal/api"
	"bondmarket/internal/api/handler"
	"bondmarket/internal/api/ws"
	"bondmarket/internal/config"
	"bondmarket/internal/lock"
	"bondmarket/internal/pricing"
	"bondmarket/internal/repository"
	"bondmarket/internal/repository/memory"
	"bondmarket/internal/repository/postgres"
	"bondmarket/internal/service"
	"bondmarket/internal/util"
	"bondmarket/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB      // nil with the memory driver
	Store  *memory.Store // nil with the postgres driver
	Redis  *redis.Client // nil when REDIS_ADDR is empty

	// Repositories
	BondRepository        repository.BondRepository
	PortfolioRepository   repository.PortfolioRepository
	TransactionRepository repository.TransactionRepository

	// Services
	CatalogService   service.CatalogService
	TradeService     service.TradeService
	PortfolioService service.PortfolioService
	MarketService    service.MarketService

	// HTTP API
	Hub         *ws.Hub
	HTTPHandler http.Handler

	stopHub context.CancelFunc
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{Logger: util.GetLogger()}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", "store_driver", cfg.StoreDriver)

	// 3. Connect to the store and initialize repositories
	deps := service.Dependencies{
		Demand: pricing.UniformDemand{Min: cfg.DemandMin, Max: cfg.DemandMax},
		Logger: app.Logger,
	}
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		app.Store = memory.NewStore()
		app.BondRepository = memory.NewBondRepository(app.Store)
		app.PortfolioRepository = memory.NewPortfolioRepository(app.Store)
		app.TransactionRepository = memory.NewTransactionRepository(app.Store)
		deps.DBExecutor = app.Store.Executor()
		deps.BeginTx = app.Store.BeginTx
		app.Logger.Warn("Using the in-memory store; state is lost on restart.")
	default:
		database, err := db.NewPostgresDB(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = database
		if err := db.EnsureSchema(ctx, app.DB); err != nil {
			return err
		}
		app.Logger.Info("Database connection established.")

		app.BondRepository = postgres.NewBondRepository(app.DB)
		app.PortfolioRepository = postgres.NewPortfolioRepository(app.DB)
		app.TransactionRepository = postgres.NewTransactionRepository(app.DB)
		// Pass the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db
		deps.DBBeginner = app.DB
		deps.DBExecutor = app.DB
		deps.BeginTx = db.BeginTx
		deps.CommitTx = db.CommitTx
		deps.RollbackTx = db.RollbackTx
	}
	deps.Bonds = app.BondRepository
	deps.Portfolios = app.PortfolioRepository
	deps.Transactions = app.TransactionRepository
	app.Logger.Info("Repositories initialized.")

	// 4. Settlement locks
	if cfg.Redis.Enabled() {
		rdb, err := lock.NewRedisClient(ctx, lock.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.Redis = rdb
		deps.Locker = lock.NewRedisLocker(rdb, cfg.LockTTL, app.Logger)
		app.Logger.Info("Using Redis settlement locks.", "addr", cfg.Redis.Addr)
	} else {
		deps.Locker = lock.NewKeyedMutex()
	}

	// 5. Market event hub
	app.Hub = ws.NewHub(app.Logger, cfg.CORSOrigins)
	hubCtx, stopHub := context.WithCancel(context.Background())
	app.stopHub = stopHub
	go func() { _ = app.Hub.Run(hubCtx) }()
	deps.Publisher = app.Hub

	// 6. Initialize Services
	app.CatalogService = service.NewCatalogService(deps)
	app.TradeService = service.NewTradeService(deps)
	app.PortfolioService = service.NewPortfolioService(deps)
	app.MarketService = service.NewMarketService(deps)
	app.Logger.Info("Services initialized.")

	// A failed seed is retried by the next catalog read.
	if n, err := app.CatalogService.Seed(ctx); err != nil {
		app.Logger.Warn("Initial catalog seeding failed", "error", err)
	} else if n > 0 {
		app.Logger.Info("Initial catalog seeded", "bonds", n)
	}

	// 7. Initialize HTTP Handlers and Router
	marketplaceHandler := handler.NewMarketplaceHandler(
		app.CatalogService,
		app.TradeService,
		app.PortfolioService,
		app.MarketService,
		app.Logger,
	)
	app.HTTPHandler = router.NewRouter(marketplaceHandler, app.Hub, router.RouterConfig{
		APIPrefix:   cfg.APIPrefix,
		CORSOrigins: cfg.CORSOrigins,
	}, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.", "prefix", cfg.APIPrefix)

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.stopHub != nil {
		app.stopHub()
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Error("Failed to close redis connection", "error", err)
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
