package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/auraflow/pkg/domain"
)

// LoggingHooks returns hooks that log stage transitions at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "stage_enter", "session", e.SessionID, "stage", e.Stage)
		},
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			if e.Err != nil {
				logger.DebugContext(ctx, "stage_leave", "session", e.SessionID, "stage", e.Stage,
					"next", e.Next, "duration", e.Duration, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "stage_leave", "session", e.SessionID, "stage", e.Stage,
				"next", e.Next, "duration", e.Duration)
		},
		OnOracleAttempt: func(ctx context.Context, e *domain.OracleAttemptEvent) {
			logger.DebugContext(ctx, "oracle_attempt", "session", e.SessionID, "attempt", e.Attempt, "malformed", e.Malformed)
		},
	}
}
