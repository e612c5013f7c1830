package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/auraflow/internal/presentation/tui"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRichSink_Emit(t *testing.T) {
	var buf bytes.Buffer
	sink := tui.NewRichSink(&buf)

	events := []domain.Event{
		{SessionID: "s1", Stage: domain.StageIntake, StateDelta: &domain.Delta{History: []string{`Intake: queued task "add"`}}},
		{SessionID: "s1", Stage: domain.StageResearch, StateDelta: &domain.Delta{History: []string{
			"Research: gathered requirements and approach.",
			domain.ResearchNotesPrefix + "# Plan\n\nUse a **function** named add.",
		}}},
		{SessionID: "s1", Stage: domain.StageVerify, StateDelta: &domain.Delta{
			History:         []string{"Verify: tests FAILED with exit code 1."},
			FailureFeedback: domain.Ptr("Traceback\nAssertionError"),
		}},
		{SessionID: "s1", Finished: true},
	}
	for _, e := range events {
		require.NoError(t, sink.Emit(e))
	}

	out := buf.String()
	assert.Contains(t, out, `Intake: queued task "add"`)
	assert.Contains(t, out, "Plan")
	assert.Contains(t, out, "function")
	assert.NotContains(t, out, domain.ResearchNotesPrefix)
	assert.Contains(t, out, "│ AssertionError")
	assert.Contains(t, out, "session s1 finished")
}

func TestRichSink_Error(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tui.NewRichSink(&buf).Emit(domain.Event{SessionID: "s1", Error: "oracle unavailable"}))
	assert.Contains(t, buf.String(), "failed")
	assert.Contains(t, buf.String(), "oracle unavailable")
}

func TestRichSink_IgnoresEmptyDelta(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tui.NewRichSink(&buf).Emit(domain.Event{Stage: domain.StageGenerate}))
	assert.Empty(t, buf.String())
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}

func TestIsTerminal_NonFile(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, tui.IsTerminal(&buf))
	assert.Equal(t, 80, tui.Width(&buf, 80))
}
