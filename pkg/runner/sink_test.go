package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/auraflow/internal/testutils"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSink(t *testing.T) {
	var buf bytes.Buffer
	sink := runner.NewTextSink(&buf)

	require.NoError(t, sink.Emit(domain.Event{
		Stage:      domain.StageResearch,
		StateDelta: &domain.Delta{History: []string{"Research: gathered", domain.ResearchNotesPrefix + "long notes"}},
	}))
	require.NoError(t, sink.Emit(domain.Event{SessionID: "s1", Finished: true}))
	require.NoError(t, sink.Emit(domain.Event{Error: "boom"}))

	assert.Equal(t, "[research] Research: gathered\n[research] Research notes:\n[done] session s1 finished\n[error] boom\n", buf.String())
}

func TestPump_JSONLines(t *testing.T) {
	oracle := testutils.NewScriptedOracle("notes", testutils.Record("a.py", passingProgram, "true"))
	r, _ := newRunner(t, oracle)

	stream, err := r.Start(context.Background(), addTask)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runner.Pump(stream, runner.NewJSONSink(&buf)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)

	var first, last domain.Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &last))
	assert.Equal(t, domain.StageIntake, first.Stage)
	assert.True(t, last.Finished)
}

func TestPump_ReportsRunFailure(t *testing.T) {
	oracle := testutils.NewScriptedOracle("notes", "garbage")
	r, _ := newRunner(t, oracle)

	stream, err := r.Start(context.Background(), addTask)
	require.NoError(t, err)

	err = runner.Pump(stream, runner.SinkFunc(func(domain.Event) error { return nil }))
	assert.ErrorIs(t, err, runner.ErrRunFailed)
}

func TestPump_SinkErrorDetaches(t *testing.T) {
	oracle := testutils.NewScriptedOracle("notes", testutils.Record("a.py", passingProgram, "true"))
	r, _ := newRunner(t, oracle)

	stream, err := r.Start(context.Background(), addTask)
	require.NoError(t, err)

	broken := errors.New("client gone")
	err = runner.Pump(stream, runner.SinkFunc(func(domain.Event) error { return broken }))
	assert.ErrorIs(t, err, broken)

	final, err := stream.Wait()
	require.NoError(t, err)
	assert.Equal(t, domain.StageDone, final.Stage)
}
