package runner_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/auraflow/internal/runtime"
	"github.com/aretw0/auraflow/internal/testutils"
	"github.com/aretw0/auraflow/pkg/adapters/memory"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/ports"
	"github.com/aretw0/auraflow/pkg/runner"
	"github.com/aretw0/auraflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addTask = "write a function that adds two numbers"

const passingProgram = "def add(a, b):\n    return a + b\n\nassert add(1, 2) == 3\n"

func newRunner(t *testing.T, oracle ports.Oracle) (*runner.Runner, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	engine := runtime.NewEngine(oracle, testutils.SetupSandbox(t))
	return runner.New(engine, session.NewManager(store)), store
}

func collect(t *testing.T, stream *runner.Stream) []domain.Event {
	t.Helper()
	var events []domain.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case e, ok := <-stream.C:
			if !ok {
				return events
			}
			events = append(events, e)
		case <-timeout:
			t.Fatal("stream did not close in time")
		}
	}
}

func stagesOf(events []domain.Event) []domain.Stage {
	var out []domain.Stage
	for _, e := range events {
		if e.Stage != "" {
			out = append(out, e.Stage)
		}
	}
	return out
}

func TestRunner_EndToEnd_Pass(t *testing.T) {
	oracle := testutils.NewScriptedOracle(
		"Write add.py with an assert.",
		testutils.Record("a.py", passingProgram, "true"),
	)
	r, store := newRunner(t, oracle)

	stream, err := r.Start(context.Background(), addTask)
	require.NoError(t, err)
	require.NotEmpty(t, stream.SessionID)

	events := collect(t, stream)
	assert.Equal(t, []domain.Stage{
		domain.StageIntake, domain.StageResearch, domain.StageGenerate, domain.StageVerify,
	}, stagesOf(events))

	last := events[len(events)-1]
	assert.True(t, last.Finished)
	assert.Equal(t, stream.SessionID, last.SessionID)

	final, err := stream.Wait()
	require.NoError(t, err)
	assert.Equal(t, domain.StageDone, final.Stage)
	assert.Empty(t, final.FailureFeedback)
	assert.Equal(t, 1, final.Rounds)
	assert.Equal(t, 2, oracle.Calls())

	stored, err := store.Load(context.Background(), stream.SessionID)
	require.NoError(t, err)
	assert.Equal(t, final.History, stored.History)
	assert.Equal(t, domain.StageDone, stored.Stage)
}

func TestRunner_EndToEnd_Repair(t *testing.T) {
	oracle := testutils.NewScriptedOracle(
		"Write add.py with an assert.",
		testutils.Record("a.py", "broken", "false"),
		testutils.Record("a.py", passingProgram, "true"),
	)
	r, _ := newRunner(t, oracle)

	stream, err := r.Start(context.Background(), addTask)
	require.NoError(t, err)

	events := collect(t, stream)
	assert.Equal(t, []domain.Stage{
		domain.StageIntake, domain.StageResearch,
		domain.StageGenerate, domain.StageVerify,
		domain.StageGenerate, domain.StageVerify,
	}, stagesOf(events))

	// The first verification reported feedback, the repair round cleared it.
	firstVerify := events[3].StateDelta
	require.NotNil(t, firstVerify.FailureFeedback)
	assert.NotEmpty(t, *firstVerify.FailureFeedback)

	final, err := stream.Wait()
	require.NoError(t, err)
	assert.Equal(t, domain.StageDone, final.Stage)
	assert.Equal(t, 2, final.Rounds)
	assert.Empty(t, final.FailureFeedback)
	assert.Equal(t, "true", final.VerifyCommand)

	// research + two generate rounds
	require.Equal(t, 3, oracle.Calls())
	assert.Contains(t, oracle.UserText(2), *firstVerify.FailureFeedback)
	assert.Contains(t, oracle.UserText(2), "broken")

	joined := strings.Join(final.History, "\n")
	failedAt := strings.Index(joined, "Verify: tests FAILED")
	passedAt := strings.Index(joined, "Verify: tests PASSED")
	require.GreaterOrEqual(t, failedAt, 0)
	require.GreaterOrEqual(t, passedAt, 0)
	assert.Less(t, failedAt, passedAt)
}

func TestRunner_GenerationExhausted(t *testing.T) {
	oracle := testutils.NewScriptedOracle("notes", "nope")
	r, store := newRunner(t, oracle)

	stream, err := r.Start(context.Background(), addTask)
	require.NoError(t, err)

	events := collect(t, stream)
	last := events[len(events)-1]
	assert.Contains(t, last.Error, "failed to generate code after 3 attempts")

	final, err := stream.Wait()
	assert.ErrorIs(t, err, domain.ErrGenerationExhausted)
	assert.Equal(t, domain.StageFailed, final.Stage)

	stored, loadErr := store.Load(context.Background(), stream.SessionID)
	require.NoError(t, loadErr)
	assert.Equal(t, domain.StageFailed, stored.Stage)
	assert.NotEmpty(t, stored.Error)
}

func TestRunner_Start_EmptyTask(t *testing.T) {
	r, store := newRunner(t, testutils.NewScriptedOracle())

	_, err := r.Start(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyTask)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRunner_Resume(t *testing.T) {
	r, store := newRunner(t, testutils.NewScriptedOracle())
	ctx := context.Background()

	t.Run("Continues From Stage Cursor", func(t *testing.T) {
		s := domain.NewState("resumable", addTask)
		s.Stage = domain.StageVerify
		s.VerifyCommand = "true"
		s.Rounds = 1
		require.NoError(t, store.Save(ctx, s.SessionID, s))

		stream, err := r.Resume(ctx, "resumable")
		require.NoError(t, err)
		assert.Equal(t, []domain.Stage{domain.StageVerify}, stagesOf(collect(t, stream)))

		final, err := stream.Wait()
		require.NoError(t, err)
		assert.Equal(t, domain.StageDone, final.Stage)
	})

	t.Run("Terminated", func(t *testing.T) {
		_, err := r.Resume(ctx, "resumable")
		assert.ErrorIs(t, err, domain.ErrSessionTerminated)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := r.Resume(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestRunner_DetachDoesNotStopRun(t *testing.T) {
	release := make(chan struct{})
	calls := 0
	oracle := ports.OracleFunc(func(ctx context.Context, _ []ports.Message) (string, error) {
		calls++
		if calls == 1 {
			<-release
			return "notes", nil
		}
		return testutils.Record("a.py", passingProgram, "true"), nil
	})
	r, store := newRunner(t, oracle)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := r.Start(ctx, addTask)
	require.NoError(t, err)

	// Client goes away mid-run.
	stream.Detach()
	cancel()
	close(release)

	_, ok := <-stream.C
	for ok {
		_, ok = <-stream.C
	}

	select {
	case <-stream.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish after detach")
	}

	stored, err := store.Load(context.Background(), stream.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageDone, stored.Stage)
}

func TestRunner_RejectsConcurrentRunOfSameSession(t *testing.T) {
	release := make(chan struct{})
	oracle := ports.OracleFunc(func(ctx context.Context, _ []ports.Message) (string, error) {
		<-release
		return "", context.Canceled
	})
	r, _ := newRunner(t, oracle)
	ctx := context.Background()

	stream, err := r.Start(ctx, addTask)
	require.NoError(t, err)

	_, err = r.Resume(ctx, stream.SessionID)
	assert.ErrorIs(t, err, runner.ErrSessionRunning)

	close(release)
	collect(t, stream)
	_, runErr := stream.Wait()
	assert.Error(t, runErr)
}

func TestRunner_Run(t *testing.T) {
	oracle := testutils.NewScriptedOracle("notes", testutils.Record("a.py", passingProgram, "true"))
	r, _ := newRunner(t, oracle)

	final, err := r.Run(context.Background(), addTask)
	require.NoError(t, err)
	assert.Equal(t, domain.StageDone, final.Stage)
}

func TestRunner_IDGenerator(t *testing.T) {
	store := memory.NewStore()
	engine := runtime.NewEngine(testutils.NewScriptedOracle("notes", testutils.Record("a.py", "x", "true")), testutils.SetupSandbox(t))
	r := runner.New(engine, session.NewManager(store), runner.WithIDGenerator(func() string { return "fixed-id" }))

	stream, err := r.Start(context.Background(), addTask)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", stream.SessionID)
	collect(t, stream)

	_, err = r.Start(context.Background(), addTask)
	assert.ErrorIs(t, err, session.ErrSessionExists)
}
