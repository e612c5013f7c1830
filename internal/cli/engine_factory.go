package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/aretw0/auraflow/internal/config"
	"github.com/aretw0/auraflow/internal/runtime"
	httpAdapter "github.com/aretw0/auraflow/pkg/adapters/http"
	"github.com/aretw0/auraflow/pkg/adapters/file"
	"github.com/aretw0/auraflow/pkg/adapters/memory"
	"github.com/aretw0/auraflow/pkg/adapters/oracle"
	"github.com/aretw0/auraflow/pkg/adapters/redis"
	"github.com/aretw0/auraflow/pkg/adapters/sandbox"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/observability"
	"github.com/aretw0/auraflow/pkg/persistence/middleware"
	"github.com/aretw0/auraflow/pkg/ports"
	"github.com/aretw0/auraflow/pkg/runner"
	"github.com/aretw0/auraflow/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App bundles the wired components shared by every command.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Store    ports.StateStore
	Sessions *session.Manager
	Sandbox  *sandbox.Sandbox
	Runner   *runner.Runner
	Streams  *httpAdapter.StreamManager

	closers []func() error
}

// BuildOptions tweaks how Build wires the application.
type BuildOptions struct {
	Debug bool
	// Logger overrides the logger derived from Debug.
	Logger *slog.Logger
	// Oracle overrides the configured language model backend.
	Oracle ports.Oracle
	// StoreOnly stops after the session store is wired. Runner and Sandbox stay nil.
	StoreOnly bool
}

// Build wires the store, oracle, sandbox, engine and runner described by cfg.
func Build(ctx context.Context, cfg config.Config, opts BuildOptions) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = createLogger(opts.Debug)
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Streams:  httpAdapter.NewStreamManager(),
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = observability.NewMetrics(app.Registry)

	store, locker, closeStore, err := NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	store, err = secureStore(store, cfg.Store)
	if err != nil {
		if closeStore != nil {
			_ = closeStore()
		}
		return nil, err
	}
	app.Store = store
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker), session.WithLockTTL(cfg.Store.LockTTL))
	}
	app.Sessions = session.NewManager(store, sessionOpts...)
	if opts.StoreOnly {
		return app, nil
	}

	orc := opts.Oracle
	if orc == nil {
		orc, err = NewOracle(ctx, cfg.Oracle)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	app.Sandbox, err = sandbox.New(cfg.Sandbox.Root, sandbox.WithEnv(cfg.Sandbox.Env))
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error initializing sandbox: %w", err)
	}

	hooks := app.Metrics.Hooks()
	if opts.Debug {
		hooks = hooks.Merge(observability.LoggingHooks(logger))
	}

	engine := runtime.NewEngine(orc, app.Sandbox,
		runtime.WithLogger(logger),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithDefaultVerifyCommand(cfg.Pipeline.VerifyCommand),
		runtime.WithVerifyTimeout(cfg.Sandbox.Timeout),
		runtime.WithMaxRepairRounds(cfg.Pipeline.MaxRepairRounds),
	)

	app.Runner = runner.New(engine, app.Sessions,
		runner.WithLogger(logger),
		runner.WithObserver(app.Streams.Publish),
	)

	return app, nil
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewStore builds the checkpoint store selected by cfg. The locker is only
// non-nil for redis with locking enabled; closeFn may be nil.
func NewStore(cfg config.StoreConfig) (store ports.StateStore, locker ports.DistributedLocker, closeFn func() error, err error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil, nil
	case config.StoreFile, "":
		return file.New(cfg.Path), nil, nil, nil
	case config.StoreRedis:
		var redisOpts []redis.Option
		if cfg.TTL > 0 {
			redisOpts = append(redisOpts, redis.WithTTL(cfg.TTL))
		}
		if cfg.RedisPrefix != "" {
			redisOpts = append(redisOpts, redis.WithPrefix(cfg.RedisPrefix))
		}
		rs, err := redis.NewFromURL(cfg.RedisURL, redisOpts...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("error initializing redis store: %w", err)
		}
		if cfg.Lock {
			prefix := cfg.RedisPrefix
			if prefix == "" {
				prefix = redis.DefaultPrefix
			}
			locker = redis.NewLocker(rs.Client(), prefix)
		}
		return rs, locker, rs.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// secureStore wraps store with the redaction and encryption middleware cfg enables.
func secureStore(store ports.StateStore, cfg config.StoreConfig) (ports.StateStore, error) {
	var mws []middleware.Middleware
	if cfg.Redact {
		patterns := cfg.RedactPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultSecretPatterns
		}
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
			}
		}
		mws = append(mws, middleware.NewRedactionMiddleware(patterns))
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}

	return middleware.Chain(store, mws...), nil
}

// NewOracle builds the language model client selected by cfg.
func NewOracle(ctx context.Context, cfg config.OracleConfig) (ports.Oracle, error) {
	switch cfg.Backend {
	case config.BackendGollm, "":
		return oracle.NewGollm(oracle.GollmConfig{
			Provider:    cfg.Provider,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	case config.BackendEino:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return oracle.NewEinoOpenAI(ctx, oracle.EinoOpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      apiKey,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
		})
	}
	return nil, fmt.Errorf("%w: unknown oracle backend %q", domain.ErrOracleUnavailable, cfg.Backend)
}
