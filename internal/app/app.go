package app

import (
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/card-arena/external/balldontlie"
	"github.com/riskibarqy/card-arena/internal/config"
	"github.com/riskibarqy/card-arena/internal/domain/arena"
	"github.com/riskibarqy/card-arena/internal/domain/inventory"
	"github.com/riskibarqy/card-arena/internal/domain/ledger"
	"github.com/riskibarqy/card-arena/internal/infrastructure/account/vault"
	"github.com/riskibarqy/card-arena/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/card-arena/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/card-arena/internal/interfaces/httpapi"
	"github.com/riskibarqy/card-arena/internal/platform/cache"
	idgen "github.com/riskibarqy/card-arena/internal/platform/id"
	"github.com/riskibarqy/card-arena/internal/platform/logging"
	"github.com/riskibarqy/card-arena/internal/platform/resilience"
	"github.com/riskibarqy/card-arena/internal/usecase"
)

// NewHTTPServer wires repositories, external clients, and services into
// a ready-to-run HTTP server. The returned cleanup closes the database
// pool when one was opened.
func NewHTTPServer(cfg config.Config, logger *slog.Logger) (*http.Server, func(), error) {
	appLogger := logging.Default()
	cleanup := func() {}

	vaultClient := vault.NewClient(vault.ClientConfig{
		BaseURL:        cfg.VaultBaseURL,
		IntrospectPath: cfg.VaultIntrospectPath,
		ServiceToken:   cfg.VaultServiceToken,
		Timeout:        cfg.VaultTimeout,
		Logger:         logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.VaultCircuitEnabled,
			FailureThreshold: cfg.VaultCircuitFailureCount,
			OpenTimeout:      cfg.VaultCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.VaultCircuitHalfOpenMaxReq,
		},
	})

	var (
		matchRepo    arena.Repository
		ledgerSvc    ledger.Service
		inventorySvc inventory.Service
		memProvider  *memory.StatProvider
	)

	if cfg.DBEnabled {
		db, err := otelsqlx.Connect(
			"postgres",
			normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
			otelsql.WithQueryFormatter(formatDBQueryForTrace),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}

		matchRepo = postgres.NewMatchRepository(db)
		ledgerSvc = vaultClient
		inventorySvc = vaultClient
		memProvider = memory.NewStatProvider()
		cleanup = func() { _ = db.Close() }
	} else {
		memLedger := memory.NewLedger()
		memInventory := memory.NewInventory()
		memProvider = memory.NewStatProvider()
		memory.ApplySeedData(memLedger, memInventory, memProvider)

		matchRepo = memory.NewMatchRepository()
		ledgerSvc = memLedger
		inventorySvc = memInventory
		logger.Info("running with in-memory repositories and seeded demo data")
	}

	var provider usecase.StatProvider = memProvider
	if cfg.BallDontLieEnabled {
		provider = balldontlie.NewClient(balldontlie.ClientConfig{
			BaseURL:    cfg.BallDontLieBaseURL,
			Token:      cfg.BallDontLieToken,
			Timeout:    cfg.BallDontLieTimeout,
			MaxRetries: cfg.BallDontLieMaxRetries,
			Logger:     appLogger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.BallDontLieCircuitEnabled,
				FailureThreshold: cfg.BallDontLieCircuitFailureCount,
				OpenTimeout:      cfg.BallDontLieCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.BallDontLieCircuitHalfOpenMaxReq,
			},
		})
	} else if cfg.DBEnabled {
		logger.Warn("balldontlie disabled, settlement will score from the empty memory stat provider")
	}

	var scheduleCache *cache.Store
	if cfg.CacheEnabled {
		scheduleCache = cache.NewStore(cfg.CacheTTL)
	}

	matchService := usecase.NewMatchService(matchRepo, ledgerSvc, inventorySvc, idgen.NewRandomGenerator(), appLogger)
	settlementService := usecase.NewSettlementService(matchRepo, ledgerSvc, provider, scheduleCache, appLogger)
	settlementService.SetRunDefaults(cfg.SettlementBatchLimit, cfg.SettlementMaxWorkers, cfg.SettlementFetchConcurrency)

	handler := httpapi.NewHandler(matchService, settlementService, logger)
	router := httpapi.NewRouter(handler, vaultClient, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		cleanup()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, cleanup, nil
}
