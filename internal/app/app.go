// Package app assembles the database, the exchange rate pipeline and the
// services shared by the API server and the ledgerctl command.
package app

import (
	"fmt"

	"dualledger/internal/config"
	"dualledger/internal/database"
	"dualledger/internal/logger"
	"dualledger/internal/models"
	"dualledger/internal/ratecache"
	"dualledger/internal/ratesource"
	"dualledger/internal/ratesync"
	"dualledger/internal/services"
	"dualledger/internal/validator"
)

// App holds the wired services.
type App struct {
	Config *config.Config
	Pair   models.CurrencyPair
	DB     *database.Manager

	RateCache *ratecache.Cache
	Refresher *ratesync.Refresher

	Tags          services.TagServicer
	Transactions  services.TransactionServicer
	Ledger        services.LedgerServicer
	Budgets       services.BudgetServicer
	Goals         services.GoalServicer
	FixedExpenses services.FixedExpenseServicer
	Rates         services.RateServicer
	Audit         services.AuditServicer
}

// New connects to the database and builds every service. Migrations are
// applied when migrate is true.
func New(cfg *config.Config, migrate bool) (*App, error) {
	pair := cfg.CurrencyPair()
	if err := pair.Validate(); err != nil {
		return nil, fmt.Errorf("invalid currency pair: %w", err)
	}
	validator.Register(pair)

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if migrate {
		if err := dbManager.RunMigrations(); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	source, err := ratesource.New(ratesource.Options{
		Kind:        cfg.RateSource,
		Pair:        pair,
		URL:         cfg.RateSourceURL,
		Selector:    cfg.RateHTMLSelector,
		MinInterval: cfg.RateMinFetchInterval,
		HTTPClient:  ratesource.NewHTTPClient(cfg.RateFetchTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure rate source: %w", err)
	}

	db := dbManager.DB()
	log := logger.Get()

	store := services.NewRateStore(db)
	cache := ratecache.New(source, store, ratecache.Config{
		Pair:         pair,
		TTL:          cfg.RateTTL,
		FetchTimeout: cfg.RateFetchTimeout,
	}, ratecache.WithLogger(log.Named("ratecache")))
	rates := services.NewRateService(cache, store)

	a := &App{
		Config:    cfg,
		Pair:      pair,
		DB:        dbManager,
		RateCache: cache,
		Refresher: ratesync.NewRefresher(cache, cfg.RateRefreshInterval, cfg.RateFetchTimeout, log.Named("ratesync")),

		Tags:          services.NewTagService(db),
		Transactions:  services.NewTransactionService(db, pair),
		Ledger:        services.NewLedgerService(db, pair, cfg.SummaryWindowDays, rates),
		Budgets:       services.NewBudgetService(db, pair),
		Goals:         services.NewGoalService(db, pair),
		FixedExpenses: services.NewFixedExpenseService(db, pair),
		Rates:         rates,
		Audit:         services.NewAuditService(db),
	}

	log.Infow("application wired",
		"primary_currency", pair.Primary,
		"secondary_currency", pair.Secondary,
		"rate_source", source.Name(),
		"db_driver", dbManager.Driver(),
	)
	return a, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.DB.Close()
}
