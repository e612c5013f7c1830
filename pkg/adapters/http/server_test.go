package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func newTestRunner(t *testing.T, oracle ports.Oracle, opts ...runner.Option) (*runner.Runner, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	engine := runtime.NewEngine(oracle, testutils.SetupSandbox(t))
	return runner.New(engine, session.NewManager(store), opts...), store
}

func parseSSE(t *testing.T, body string) []domain.Event {
	t.Helper()
	var events []domain.Event
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok || payload == "connected" {
			continue
		}
		var e domain.Event
		require.NoError(t, json.Unmarshal([]byte(payload), &e), payload)
		events = append(events, e)
	}
	return events
}

func TestHealthAndInfo(t *testing.T) {
	r, _ := newTestRunner(t, testutils.NewScriptedOracle())
	handler := NewHandler(r)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/info", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auraflow-http")
}

func TestCORS(t *testing.T) {
	r, _ := newTestRunner(t, testutils.NewScriptedOracle())
	handler := NewHandler(r, WithAllowedOrigin("http://localhost:3000"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/api/run-flow", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRunFlow_StreamsEvents(t *testing.T) {
	oracle := testutils.NewScriptedOracle("notes", testutils.Record("a.py", "print(1)\n", "true"))
	r, store := newTestRunner(t, oracle)
	handler := NewHandler(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/run-flow", strings.NewReader(`{"task":"add two numbers"}`))
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, `"stage_name":"intake"`)
	assert.Contains(t, body, `"state_delta":{`)
	assert.Contains(t, body, `"finished":true`)
	assert.NotContains(t, body, `"node"`)

	events := parseSSE(t, body)
	require.Len(t, events, 5)
	assert.Equal(t, domain.StageIntake, events[0].Stage)
	assert.Equal(t, domain.StageVerify, events[3].Stage)
	assert.True(t, events[4].Finished)

	id := w.Header().Get("X-Session-Id")
	require.NotEmpty(t, id)
	assert.Equal(t, id, events[0].SessionID)

	state, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StageDone, state.Stage)
}

func TestRunFlow_ErrorEvent(t *testing.T) {
	r, _ := newTestRunner(t, testutils.NewScriptedOracle("notes", "not json"))
	handler := NewHandler(r)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/run-flow", strings.NewReader(`{"task":"x"}`)))

	events := parseSSE(t, w.Body.String())
	require.NotEmpty(t, events)
	assert.Contains(t, events[len(events)-1].Error, "failed to generate code after 3 attempts")
}

func TestRunFlow_BadRequests(t *testing.T) {
	r, _ := newTestRunner(t, testutils.NewScriptedOracle())
	handler := NewHandler(r)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/run-flow", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/run-flow", strings.NewReader(`{"task":"   "}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "task cannot be empty")
}

func TestSessions(t *testing.T) {
	r, store := newTestRunner(t, testutils.NewScriptedOracle())
	handler := NewHandler(r)
	ctx := context.Background()

	done := domain.NewState("done-1", "task")
	done.Stage = domain.StageDone
	done.Rounds = 2
	require.NoError(t, store.Save(ctx, done.SessionID, done))

	paused := domain.NewState("paused-1", "task")
	paused.Stage = domain.StageVerify
	paused.VerifyCommand = "true"
	paused.Rounds = 1
	require.NoError(t, store.Save(ctx, paused.SessionID, paused))

	t.Run("List", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var list []SessionSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		assert.Equal(t, []SessionSummary{
			{SessionID: "done-1", Stage: domain.StageDone, Rounds: 2},
			{SessionID: "paused-1", Stage: domain.StageVerify, Rounds: 1},
		}, list)
	})

	t.Run("Get", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/done-1", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var state domain.State
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
		assert.Equal(t, "task", state.Task)
	})

	t.Run("Get Missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Resume", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/sessions/paused-1/resume", nil))
		require.Equal(t, http.StatusOK, w.Code)

		events := parseSSE(t, w.Body.String())
		require.Len(t, events, 2)
		assert.Equal(t, domain.StageVerify, events[0].Stage)
		assert.True(t, events[1].Finished)
	})

	t.Run("Resume Terminated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/sessions/done-1/resume", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSubscribeEvents_RelaysRun(t *testing.T) {
	streams := NewStreamManager()
	release := make(chan struct{})
	calls := 0
	oracle := ports.OracleFunc(func(ctx context.Context, _ []ports.Message) (string, error) {
		calls++
		if calls == 1 {
			<-release
			return "notes", nil
		}
		return testutils.Record("a.py", "x", "true"), nil
	})
	r, _ := newTestRunner(t, oracle, runner.WithObserver(streams.Publish))
	handler := NewHandler(r, WithStreams(streams))

	stream, err := r.Start(context.Background(), "task")
	require.NoError(t, err)
	stream.Detach()

	w := httptest.NewRecorder()
	served := make(chan struct{})
	go func() {
		defer close(served)
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/"+stream.SessionID+"/events", nil))
	}()

	require.Eventually(t, func() bool { return streams.Subscribers(stream.SessionID) == 1 }, 5*time.Second, 10*time.Millisecond)
	close(release)

	select {
	case <-served:
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not return after the run finished")
	}

	body := w.Body.String()
	assert.Contains(t, body, "event: ping")
	events := parseSSE(t, body)
	require.NotEmpty(t, events)
	assert.True(t, events[len(events)-1].Finished)
	assert.Equal(t, 0, streams.Subscribers(stream.SessionID))
}

func TestStreamManager_DropsForSlowClients(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("s")
	defer cancel()

	for i := 0; i < 100; i++ {
		sm.Broadcast("s", "msg")
	}
	assert.Len(t, ch, cap(ch))

	cancel()
	cancel() // idempotent
	assert.Equal(t, 0, sm.Subscribers("s"))
}
