package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/auraflow/internal/config"
	"github.com/aretw0/auraflow/internal/testutils"
	"github.com/aretw0/auraflow/pkg/adapters/file"
	"github.com/aretw0/auraflow/pkg/adapters/memory"
	"github.com/aretw0/auraflow/pkg/adapters/redis"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Sandbox.Root = filepath.Join(t.TempDir(), "sandbox")
	cfg.Store.Backend = config.StoreMemory
	return cfg
}

func buildApp(t *testing.T, oracle *testutils.ScriptedOracle) *App {
	t.Helper()
	app, err := Build(context.Background(), testConfig(t), BuildOptions{Oracle: oracle})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRunTask_JSON(t *testing.T) {
	app := buildApp(t, testutils.NewScriptedOracle(
		"Write a.py.",
		testutils.Record("a.py", "print(1)\n", "true"),
	))

	var out bytes.Buffer
	err := RunTask(context.Background(), app, "print one", RunOptions{JSON: true, Out: &out})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5, "four stages plus the finished event")

	var last domain.Event
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.True(t, last.Finished)

	ids, err := app.Sessions.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)

	var inspected bytes.Buffer
	require.NoError(t, InspectSession(context.Background(), app, ids[0], false, &inspected))
	assert.Contains(t, inspected.String(), `"stage": "done"`)
}

func TestRunTask_Text(t *testing.T) {
	app := buildApp(t, testutils.NewScriptedOracle(
		"Write a.py.",
		testutils.Record("a.py", "print(1)\n", "true"),
	))

	var out bytes.Buffer
	require.NoError(t, RunTask(context.Background(), app, "print one", RunOptions{Out: &out}))
	assert.Contains(t, out.String(), "Verify: tests PASSED.")
	assert.Contains(t, out.String(), ">>> Artifact: a.py")
	assert.Contains(t, out.String(), ">>> Finished at 'done' stage.")
}

func TestRunTask_Failure(t *testing.T) {
	app := buildApp(t, testutils.NewScriptedOracle("notes", "garbage"))

	var out bytes.Buffer
	err := RunTask(context.Background(), app, "print one", RunOptions{Out: &out})
	assert.ErrorIs(t, err, runner.ErrRunFailed)
	assert.Contains(t, out.String(), "Finished at 'failed' stage.")
}

func TestResumeTask(t *testing.T) {
	app := buildApp(t, testutils.NewScriptedOracle())
	ctx := context.Background()

	state := domain.NewState("paused", "task")
	state.Stage = domain.StageVerify
	state.VerifyCommand = "true"
	state.Rounds = 1
	require.NoError(t, app.Store.Save(ctx, "paused", state))

	var out bytes.Buffer
	require.NoError(t, ResumeTask(ctx, app, "paused", RunOptions{Out: &out}))
	assert.Contains(t, out.String(), "Resuming session 'paused'")

	err := ResumeTask(ctx, app, "paused", RunOptions{Out: &out})
	assert.ErrorIs(t, err, domain.ErrSessionTerminated)
}

func TestSessions_ListInspectRemove(t *testing.T) {
	app := buildApp(t, testutils.NewScriptedOracle())
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, ListSessions(ctx, app, &out))
	assert.Contains(t, out.String(), "No sessions found.")

	for _, id := range []string{"a", "b"} {
		s := domain.NewState(id, "task")
		s.History = []string{`Intake: queued task "task"`}
		s.Stage = domain.StageResearch
		require.NoError(t, app.Store.Save(ctx, id, s))
	}

	out.Reset()
	require.NoError(t, ListSessions(ctx, app, &out))
	assert.Contains(t, out.String(), "SESSION")
	assert.Contains(t, out.String(), "research")

	out.Reset()
	require.NoError(t, InspectSession(ctx, app, "a", true, &out))
	assert.Contains(t, out.String(), "class intake visited;")
	assert.Contains(t, out.String(), "class research current;")

	assert.Error(t, InspectSession(ctx, app, "missing", false, &out))

	out.Reset()
	require.NoError(t, RemoveSessions(ctx, app, []string{"a"}, false, &out))
	assert.Contains(t, out.String(), "Removed session 'a'")

	require.NoError(t, RemoveSessions(ctx, app, nil, true, &out))
	ids, err := app.Sessions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNewStore(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		store, locker, closeFn, err := NewStore(config.StoreConfig{Backend: config.StoreMemory})
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, store)
		assert.Nil(t, locker)
		assert.Nil(t, closeFn)
	})

	t.Run("File", func(t *testing.T) {
		store, _, _, err := NewStore(config.StoreConfig{Backend: config.StoreFile, Path: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &file.Store{}, store)
	})

	t.Run("Redis With Lock", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, locker, closeFn, err := NewStore(config.StoreConfig{
			Backend:  config.StoreRedis,
			RedisURL: "redis://" + mr.Addr(),
			Lock:     true,
		})
		require.NoError(t, err)
		defer func() { _ = closeFn() }()
		assert.IsType(t, &redis.Store{}, store)
		require.NotNil(t, locker)

		unlock, err := locker.Lock(context.Background(), "s-1", time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(context.Background()))
	})

	t.Run("Unknown", func(t *testing.T) {
		_, _, _, err := NewStore(config.StoreConfig{Backend: "s3"})
		assert.Error(t, err)
	})
}

func TestNewOracle_UnknownBackend(t *testing.T) {
	_, err := NewOracle(context.Background(), config.OracleConfig{Backend: "magic"})
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
}

func TestNewHTTPHandler_Metrics(t *testing.T) {
	app := buildApp(t, testutils.NewScriptedOracle(
		"notes",
		testutils.Record("a.py", "print(1)\n", "true"),
	))
	_, err := app.Runner.Run(context.Background(), "print one")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	NewHTTPHandler(app).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `auraflow_stage_visits_total{stage="verify"} 1`)
}

func TestSecureStore(t *testing.T) {
	ctx := context.Background()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	raw := memory.NewStore()
	store, err := secureStore(raw, config.StoreConfig{Redact: true, EncryptionKey: key})
	require.NoError(t, err)

	state := domain.NewState("s", "token sk-abcdefghijklmnopqrstuv")
	require.NoError(t, store.Save(ctx, "s", state))

	sealed, err := raw.Load(ctx, "s")
	require.NoError(t, err)
	assert.NotEmpty(t, sealed.Sealed)
	assert.Empty(t, sealed.Task)

	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "token ***", loaded.Task)

	_, err = secureStore(raw, config.StoreConfig{Redact: true, RedactPatterns: []string{"("}})
	assert.Error(t, err)
}
