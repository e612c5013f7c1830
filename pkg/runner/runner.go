package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/auraflow/internal/logging"
	"github.com/aretw0/auraflow/internal/runtime"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/session"
	"github.com/google/uuid"
)

// ErrSessionRunning is returned when a run for the session is already in flight.
var ErrSessionRunning = errors.New("session is already running")

// Runner executes sessions against an Engine, persisting after every stage.
type Runner struct {
	engine   *runtime.Engine
	sessions *session.Manager
	logger   *slog.Logger
	newID    func() string
	observer func(domain.Event)

	mu      sync.Mutex
	running map[string]struct{}
}

// Option configures the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithIDGenerator overrides how new session IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(r *Runner) {
		r.newID = fn
	}
}

// WithObserver receives every event of every run, after it was queued on the
// run's stream. It is called from the run goroutine and must not block.
func WithObserver(fn func(domain.Event)) Option {
	return func(r *Runner) {
		r.observer = fn
	}
}

// New creates a Runner.
func New(engine *runtime.Engine, sessions *session.Manager, opts ...Option) *Runner {
	r := &Runner{
		engine:   engine,
		sessions: sessions,
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
		running:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sessions returns the session manager backing the runner.
func (r *Runner) Sessions() *session.Manager {
	return r.sessions
}

// Start creates a session for task and begins running it in the background.
// Cancelling ctx after Start returns does not stop the run.
func (r *Runner) Start(ctx context.Context, task string) (*Stream, error) {
	if strings.TrimSpace(task) == "" {
		return nil, domain.ErrEmptyTask
	}

	state, err := r.sessions.Create(ctx, r.newID(), task)
	if err != nil {
		return nil, err
	}

	return r.launch(ctx, state)
}

// Resume continues a persisted session from the stage it stopped at.
func (r *Runner) Resume(ctx context.Context, sessionID string) (*Stream, error) {
	state, err := r.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Stage.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrSessionTerminated, sessionID, state.Stage)
	}

	return r.launch(ctx, state)
}

// Run starts task and blocks until it reaches a terminal stage, discarding events.
// The returned error is the one that failed the run, if any.
func (r *Runner) Run(ctx context.Context, task string) (*domain.State, error) {
	stream, err := r.Start(ctx, task)
	if err != nil {
		return nil, err
	}
	for range stream.C {
	}
	return stream.Wait()
}

func (r *Runner) launch(ctx context.Context, state *domain.State) (*Stream, error) {
	r.mu.Lock()
	if _, busy := r.running[state.SessionID]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionRunning, state.SessionID)
	}
	r.running[state.SessionID] = struct{}{}
	r.mu.Unlock()

	stream := newStream(state.SessionID)
	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.running, state.SessionID)
			r.mu.Unlock()
		}()
		// The run outlives the request that started it.
		r.drive(context.WithoutCancel(ctx), state, stream)
	}()

	return stream, nil
}

func (r *Runner) drive(ctx context.Context, state *domain.State, stream *Stream) {
	var runErr error
	defer func() { stream.finish(state, runErr) }()

	id := state.SessionID
	emit := func(e domain.Event) {
		stream.push(e)
		if r.observer != nil {
			r.observer(e)
		}
	}
	r.logger.Info("session started", "session", id, "stage", state.Stage)

	for !state.Stage.IsTerminal() {
		stage := state.Stage
		delta, next, err := r.engine.Step(ctx, state)

		state.Apply(delta)
		state.Stage = next

		if saveErr := r.sessions.Save(ctx, id, state); saveErr != nil {
			r.logger.Error("checkpoint failed", "session", id, "stage", stage, "error", saveErr)
			if err == nil {
				err = fmt.Errorf("checkpoint: %w", saveErr)
			}
		}

		emit(domain.Event{SessionID: id, Stage: stage, StateDelta: &delta})

		if err != nil {
			runErr = err
			emit(domain.Event{SessionID: id, Error: err.Error()})
			r.logger.Warn("session failed", "session", id, "stage", stage, "error", err)
			return
		}
	}

	emit(domain.Event{SessionID: id, Finished: true})
	r.logger.Info("session finished", "session", id, "stage", state.Stage, "rounds", state.Rounds)
}
