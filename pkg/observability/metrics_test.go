package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnStageEnter(ctx, &domain.StageEvent{Stage: domain.StageGenerate})
	hooks.OnStageEnter(ctx, &domain.StageEvent{Stage: domain.StageGenerate})
	hooks.OnStageLeave(ctx, &domain.StageEvent{Stage: domain.StageGenerate, Duration: time.Second})
	hooks.OnStageLeave(ctx, &domain.StageEvent{Stage: domain.StageGenerate, Duration: time.Second, Err: errors.New("x")})
	hooks.OnOracleAttempt(ctx, &domain.OracleAttemptEvent{Attempt: 1, Malformed: true})
	hooks.OnOracleAttempt(ctx, &domain.OracleAttemptEvent{Attempt: 2})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageVisits.WithLabelValues("generate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("generate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleAttempts.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleAttempts.WithLabelValues("false")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))

	count, err := testutil.GatherAndCount(reg, "auraflow_stage_visits_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)

	hooks.OnStageEnter(context.Background(), &domain.StageEvent{SessionID: "s1", Stage: domain.StageVerify})
	hooks.OnStageLeave(context.Background(), &domain.StageEvent{SessionID: "s1", Stage: domain.StageVerify, Next: domain.StageDone})

	out := buf.String()
	assert.Contains(t, out, "stage_enter")
	assert.Contains(t, out, "stage_leave")
	assert.Contains(t, out, "next=done")
}
