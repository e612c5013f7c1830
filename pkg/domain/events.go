package domain

import (
	"context"
	"time"
)

// Event is one progress record emitted to callers while a session runs.
// Exactly one of (Stage, Finished, Error) is meaningful per event.
type Event struct {
	SessionID  string `json:"session_id,omitempty"`
	Stage      Stage  `json:"stage_name,omitempty"`
	StateDelta *Delta `json:"state_delta,omitempty"`
	Finished   bool   `json:"finished,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StageEvent describes entry into or exit from a stage.
type StageEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id"`
	Stage     Stage         `json:"stage"`
	Next      Stage         `json:"next,omitempty"`     // set on leave
	Duration  time.Duration `json:"duration,omitempty"` // set on leave
	Err       error         `json:"-"`
}

// OracleAttemptEvent describes one generate attempt against the oracle.
type OracleAttemptEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Attempt   int       `json:"attempt"`
	Malformed bool      `json:"malformed"`
}

// LifecycleHooks defines callbacks for pipeline observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnStageEnter    func(context.Context, *StageEvent)
	OnStageLeave    func(context.Context, *StageEvent)
	OnOracleAttempt func(context.Context, *OracleAttemptEvent)
}

// Merge returns hooks calling h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStageEnter:    chain(h.OnStageEnter, other.OnStageEnter),
		OnStageLeave:    chain(h.OnStageLeave, other.OnStageLeave),
		OnOracleAttempt: chain(h.OnOracleAttempt, other.OnOracleAttempt),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
