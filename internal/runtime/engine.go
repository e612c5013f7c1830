package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/auraflow/internal/logging"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/ports"
)

const (
	// GenerationAttempts is the number of oracle calls the generate stage makes
	// before giving up on malformed responses.
	GenerationAttempts = 3

	// DefaultVerifyCommand is used when the oracle leaves verify_command blank.
	DefaultVerifyCommand = "python test_script.py"

	// DefaultVerifyTimeout bounds each verification command.
	DefaultVerifyTimeout = 30 * time.Second
)

// Engine executes pipeline stages against an oracle and a sandbox.
// It holds no per-session state; the caller threads domain.State through Step.
type Engine struct {
	oracle  ports.Oracle
	sandbox ports.Sandbox
	logger  *slog.Logger
	hooks   domain.LifecycleHooks

	defaultVerifyCommand string
	verifyTimeout        time.Duration
	maxRepairRounds      int
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithDefaultVerifyCommand overrides the fallback verification command.
func WithDefaultVerifyCommand(cmd string) Option {
	return func(e *Engine) {
		if cmd != "" {
			e.defaultVerifyCommand = cmd
		}
	}
}

// WithVerifyTimeout sets the wall-clock limit for verification commands.
func WithVerifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.verifyTimeout = d
		}
	}
}

// WithMaxRepairRounds caps how many times a failed verification may loop back
// to generate. Zero means unbounded.
func WithMaxRepairRounds(n int) Option {
	return func(e *Engine) {
		e.maxRepairRounds = n
	}
}

// NewEngine creates an engine with its collaborators.
func NewEngine(oracle ports.Oracle, sandbox ports.Sandbox, opts ...Option) *Engine {
	e := &Engine{
		oracle:               oracle,
		sandbox:              sandbox,
		logger:               logging.NewNop(),
		defaultVerifyCommand: DefaultVerifyCommand,
		verifyTimeout:        DefaultVerifyTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step runs the stage the state is positioned at and returns the delta to
// merge together with the stage to run next. A non-nil error always comes with
// next == domain.StageFailed and a delta recording the failure.
func (e *Engine) Step(ctx context.Context, state *domain.State) (domain.Delta, domain.Stage, error) {
	stage := state.Stage
	if stage.IsTerminal() {
		return domain.Delta{}, stage, domain.ErrSessionTerminated
	}

	start := time.Now()
	if e.hooks.OnStageEnter != nil {
		e.hooks.OnStageEnter(ctx, &domain.StageEvent{
			Timestamp: start,
			SessionID: state.SessionID,
			Stage:     stage,
		})
	}

	var (
		delta domain.Delta
		err   error
	)
	switch stage {
	case domain.StageIntake:
		delta, err = e.intake(state)
	case domain.StageResearch:
		delta, err = e.research(ctx, state)
	case domain.StageGenerate:
		delta, err = e.generate(ctx, state)
	case domain.StageVerify:
		delta, err = e.verify(ctx, state)
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}

	var next domain.Stage
	if err != nil {
		next = domain.StageFailed
		msg := err.Error()
		delta.Error = &msg
		delta.History = append(delta.History, fmt.Sprintf("%s: FAILED: %s", stageLabel(stage), msg))
		e.logger.Error("stage failed", "session", state.SessionID, "stage", stage, "error", err)
	} else {
		hasFeedback := state.NeedsRepair()
		if delta.FailureFeedback != nil {
			hasFeedback = *delta.FailureFeedback != ""
		}
		next = Next(stage, hasFeedback)
		e.logger.Debug("stage completed", "session", state.SessionID, "stage", stage, "next", next)
	}

	if e.hooks.OnStageLeave != nil {
		e.hooks.OnStageLeave(ctx, &domain.StageEvent{
			Timestamp: time.Now(),
			SessionID: state.SessionID,
			Stage:     stage,
			Next:      next,
			Duration:  time.Since(start),
			Err:       err,
		})
	}

	return delta, next, err
}

func stageLabel(s domain.Stage) string {
	switch s {
	case domain.StageIntake:
		return "Intake"
	case domain.StageResearch:
		return "Research"
	case domain.StageGenerate:
		return "Generate"
	case domain.StageVerify:
		return "Verify"
	}
	return string(s)
}
