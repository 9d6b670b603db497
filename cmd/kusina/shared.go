package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	goutils "github.com/jkaninda/go-utils"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/config"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/handlers/chatsupport"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/handlers/cooking"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/handlers/discovery"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/handlers/preference"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm/anthropic"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm/openai"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/notification"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/observability"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/storage"
	pgstore "github.com/john-revops11/ai-kusina-helper-sub000/internal/storage/postgres"
	sqlitestore "github.com/john-revops11/ai-kusina-helper-sub000/internal/storage/sqlite"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to config file")
}

// loadConfig reads the config file named by --config or KUSINA_CONFIG.
func loadConfig() (*config.Config, error) {
	return config.Load(goutils.Env("KUSINA_CONFIG", configPath))
}

// SharedComponents holds every subsystem the serve, chat and mcp modes
// need. Built once by initShared, torn down by Cleanup.
type SharedComponents struct {
	Config *config.Config
	Logger *slog.Logger
	Store  storage.Store // SQLite or PostgreSQL.

	Obs          *observability.Observability
	LLMProvider  llm.Provider
	Dispatcher   *notification.Dispatcher // nil = notifications disabled.
	Orchestrator *agent.Orchestrator
	Chat         *gateway.Chat

	cleanups []func()
}

// Cleanup runs all deferred cleanup functions in reverse order.
func (sc *SharedComponents) Cleanup() {
	for i := len(sc.cleanups) - 1; i >= 0; i-- {
		sc.cleanups[i]()
	}
}

func (sc *SharedComponents) addCleanup(fn func()) {
	sc.cleanups = append(sc.cleanups, fn)
}

// initShared performs the initialization common to every run mode.
// Callers must call sc.Cleanup() when done, including on error.
func initShared(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*SharedComponents, error) {
	sc := &SharedComponents{
		Config: cfg,
		Logger: logger,
	}

	dataDir := cfg.ResolvedDataDir()
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return sc, fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}
	logger.Debug("data directory initialized", slog.String("path", dataDir))

	// Observability.
	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return sc, fmt.Errorf("initializing observability: %w", err)
	}
	sc.Obs = obs
	sc.addCleanup(func() {
		if obs != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			obs.Shutdown(shutdownCtx)
		}
	})
	if obs != nil {
		logger.Debug("observability initialized",
			slog.Bool("metrics", obs.Metrics != nil),
			slog.Bool("tracing", obs.Tracer != nil),
		)
	}

	// Storage.
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return sc, err
	}
	sc.Store = store
	sc.addCleanup(func() { _ = store.Close() })

	if err := recipe.Seed(ctx, store.Recipes(), logger); err != nil {
		return sc, fmt.Errorf("seeding recipes: %w", err)
	}

	// LLM provider.
	provider, err := newLLMProvider(cfg, obs, logger)
	if err != nil {
		return sc, fmt.Errorf("initializing llm provider: %w", err)
	}
	sc.LLMProvider = provider
	logger.Debug("llm provider initialized", slog.String("provider", provider.Name()))

	// Fault notifications.
	dispatcher, err := notification.NewFromConfig(cfg.Notification, obs.MetricsOrNil(), logger)
	if err != nil {
		return sc, fmt.Errorf("initializing notifications: %w", err)
	}
	sc.Dispatcher = dispatcher

	// Orchestrator and agents.
	orch := agent.NewOrchestrator(logger).
		WithObservability(obs).
		WithRequestTimeout(cfg.Orchestrator.RequestTimeout())
	if dispatcher != nil {
		orch.WithNotifier(dispatcher)
	}
	registerAgents(orch, store, provider, logger)
	if err := orch.Ready(); err != nil {
		return sc, err
	}
	sc.Orchestrator = orch
	sc.Chat = gateway.NewChat(orch, store.Preferences(), logger)

	if obs != nil && obs.Health != nil {
		obs.Health.AddCheck("storage", store.Ping)
		obs.Health.AddCheck("agents", func(context.Context) error { return orch.Ready() })
	}

	logger.Info("kusina initialized",
		slog.String("storage", store.Driver()),
		slog.String("provider", provider.Name()),
		slog.Int("agents", len(orch.Agents())),
		slog.Bool("notifications", dispatcher != nil),
	)
	return sc, nil
}

// registerAgents registers the four handlers. ChatSupport goes first so it
// is the fallback whenever a preferred agent is missing.
func registerAgents(orch *agent.Orchestrator, store storage.Store, provider llm.Provider, logger *slog.Logger) {
	orch.RegisterAgent(chatsupport.New(provider, logger))
	orch.RegisterAgent(cooking.New(store.Recipes(), provider, logger))
	orch.RegisterAgent(discovery.New(store.Recipes(), provider, logger))
	orch.RegisterAgent(preference.New(store.Preferences(), logger))
}

// openStore opens the configured backend and applies migrations.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	store, err := initStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrating %s store: %w", store.Driver(), err)
	}
	logger.Debug("storage initialized", slog.String("driver", store.Driver()))
	return store, nil
}

func initStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	driver := cfg.StorageDriverName()

	switch driver {
	case storage.DriverPostgres:
		return initPostgresStore(cfg, logger)
	case storage.DriverSQLite:
		return initSQLiteStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}

func initSQLiteStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	dbPath := cfg.DatabasePath()
	journalMode := "wal"

	if cfg.Storage != nil && cfg.Storage.SQLite != nil {
		if cfg.Storage.SQLite.Path != "" {
			dbPath = cfg.Storage.SQLite.Path
		}
		if cfg.Storage.SQLite.JournalMode != "" {
			journalMode = cfg.Storage.SQLite.JournalMode
		}
	}

	return sqlitestore.Open(sqlitestore.Config{
		Path:        dbPath,
		JournalMode: journalMode,
	}, logger)
}

func initPostgresStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.Storage == nil || cfg.Storage.Postgres == nil || cfg.Storage.Postgres.DSN == "" {
		return nil, errors.New("postgres DSN is required (set storage.postgres.dsn or KUSINA_DB_DSN)")
	}
	pg := cfg.Storage.Postgres

	pgDB, err := pgstore.Open(pgstore.Config{
		DSN:             pg.DSN,
		MaxOpenConns:    pg.MaxOpenConns,
		MaxIdleConns:    pg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(pg.ConnMaxLifetimeS) * time.Second,
		ConnMaxIdleTime: time.Duration(pg.ConnMaxIdleTimeS) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	return pgstore.NewStore(pgDB), nil
}

// newLLMProvider builds the default provider plus any fallbacks. Each
// backend is instrumented on its own so metrics carry the real provider.
func newLLMProvider(cfg *config.Config, obs *observability.Observability, logger *slog.Logger) (llm.Provider, error) {
	primary, err := buildProvider(cfg.Providers.Default, cfg, logger)
	if err != nil {
		return nil, err
	}
	primary = observability.NewInstrumentedProvider(primary, obs)

	if len(cfg.Providers.Fallback) == 0 {
		return primary, nil
	}

	providers := []llm.Provider{primary}
	for _, name := range cfg.Providers.Fallback {
		fb, err := buildProvider(name, cfg, logger)
		if err != nil {
			logger.Warn("skipping fallback provider",
				slog.String("provider", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		providers = append(providers, observability.NewInstrumentedProvider(fb, obs))
	}
	return llm.NewFallbackProvider(providers, logger)
}

// buildProvider creates a single LLM provider by name.
func buildProvider(name string, cfg *config.Config, logger *slog.Logger) (llm.Provider, error) {
	switch name {
	case "openai", "":
		var opts []openai.Option
		if cfg.Providers.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Providers.OpenAI.BaseURL))
		}
		return openai.NewClient(
			cfg.Providers.OpenAI.APIKey,
			cfg.Providers.OpenAI.Model,
			logger,
			opts...,
		), nil
	case "anthropic":
		var opts []anthropic.Option
		if cfg.Providers.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Providers.Anthropic.BaseURL))
		}
		return anthropic.NewClient(
			cfg.Providers.Anthropic.APIKey,
			cfg.Providers.Anthropic.Model,
			logger,
			opts...,
		), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", name)
	}
}
