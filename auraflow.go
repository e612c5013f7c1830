package auraflow

import (
	"log/slog"
	"time"

	"github.com/aretw0/auraflow/internal/logging"
	"github.com/aretw0/auraflow/internal/runtime"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/ports"
	"github.com/aretw0/auraflow/pkg/runner"
	"github.com/aretw0/auraflow/pkg/session"
)

// GenerationAttempts is how many times generate asks the oracle for a well-formed record.
const GenerationAttempts = runtime.GenerationAttempts

type options struct {
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	locker     ports.DistributedLocker
	runtimeOps []runtime.Option
	runnerOps  []runner.Option
}

// Option defines a functional option for New.
type Option func(*options)

// WithLogger sets a custom structured logger for the engine, sessions and runner.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = o.hooks.Merge(hooks)
	}
}

// WithMaxRepairRounds caps repair rounds after the first generation. Zero means unbounded.
func WithMaxRepairRounds(n int) Option {
	return func(o *options) {
		o.runtimeOps = append(o.runtimeOps, runtime.WithMaxRepairRounds(n))
	}
}

// WithDefaultVerifyCommand sets the command used when the oracle leaves it blank.
func WithDefaultVerifyCommand(cmd string) Option {
	return func(o *options) {
		o.runtimeOps = append(o.runtimeOps, runtime.WithDefaultVerifyCommand(cmd))
	}
}

// WithVerifyTimeout bounds each verification command.
func WithVerifyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.runtimeOps = append(o.runtimeOps, runtime.WithVerifyTimeout(d))
	}
}

// WithLocker guards session creation with a distributed lock.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithObserver receives every event of every run. It must not block.
func WithObserver(fn func(domain.Event)) Option {
	return func(o *options) {
		o.runnerOps = append(o.runnerOps, runner.WithObserver(fn))
	}
}

// New is the high-level entry point for the library: it wires the stage engine
// over oracle and sandbox, and returns a Runner checkpointing into store.
func New(oracle ports.Oracle, sandbox ports.Sandbox, store ports.StateStore, opts ...Option) *runner.Runner {
	o := &options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	engineOpts := append([]runtime.Option{
		runtime.WithLogger(o.logger),
		runtime.WithLifecycleHooks(o.hooks),
	}, o.runtimeOps...)
	engine := runtime.NewEngine(oracle, sandbox, engineOpts...)

	sessionOpts := []session.Option{session.WithLogger(o.logger)}
	if o.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(o.locker))
	}

	runnerOpts := append([]runner.Option{runner.WithLogger(o.logger)}, o.runnerOps...)
	return runner.New(engine, session.NewManager(store, sessionOpts...), runnerOpts...)
}
