package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/auraflow"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/runner"
	"github.com/aretw0/auraflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes a Runner over HTTP with SSE progress streams.
type Server struct {
	Runner  *runner.Runner
	Streams *StreamManager
	Logger  *slog.Logger

	allowedOrigin string
	metrics       http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager, typically the one wired as the runner's observer.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithAllowedOrigin sets the CORS allowed origin. Defaults to "*".
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.allowedOrigin = origin
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// TaskRequest is the body of POST /api/run-flow.
type TaskRequest struct {
	Task string `json:"task"`
}

// SessionSummary is one entry of GET /api/sessions.
type SessionSummary struct {
	SessionID string       `json:"session_id"`
	Stage     domain.Stage `json:"stage"`
	Rounds    int          `json:"rounds"`
}

// NewHandler creates the HTTP handler for r.
func NewHandler(r *runner.Runner, opts ...Option) http.Handler {
	server := &Server{
		Runner:        r,
		Logger:        slog.Default(),
		allowedOrigin: "*",
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager()
	}
	server.Streams.logger = server.Logger

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(server.cors)

	router.Get("/health", server.GetHealth)
	router.Get("/info", server.GetInfo)
	if server.metrics != nil {
		router.Handle("/metrics", server.metrics)
	}

	router.Route("/api", func(api chi.Router) {
		api.Post("/run-flow", server.RunFlow)
		api.Get("/sessions", server.ListSessions)
		api.Get("/sessions/{id}", server.GetSession)
		api.Post("/sessions/{id}/resume", server.ResumeSession)
		api.Get("/sessions/{id}/events", server.SubscribeEvents)
	})

	return router
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if s.allowedOrigin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "auraflow-http",
		"version": strings.TrimSpace(auraflow.Version),
	})
}

// RunFlow handles POST /api/run-flow: it starts a session and streams its events.
func (s *Server) RunFlow(w http.ResponseWriter, r *http.Request) {
	var body TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("RunFlow: Invalid request body", "error", err)
		return
	}

	stream, err := s.Runner.Start(r.Context(), body.Task)
	if err != nil {
		s.writeError(w, "RunFlow", err)
		return
	}

	s.Logger.Info("RunFlow: session started", "session_id", stream.SessionID)
	s.pump(w, r, stream)
}

// ResumeSession handles POST /api/sessions/{id}/resume.
func (s *Server) ResumeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stream, err := s.Runner.Resume(r.Context(), id)
	if err != nil {
		s.writeError(w, "ResumeSession", err)
		return
	}

	s.Logger.Info("ResumeSession: session resumed", "session_id", id)
	s.pump(w, r, stream)
}

// ListSessions handles GET /api/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	mgr := s.Runner.Sessions()
	ids, err := mgr.List(r.Context())
	if err != nil {
		s.writeError(w, "ListSessions", err)
		return
	}

	out := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		state, err := mgr.Load(r.Context(), id)
		if err != nil {
			// Expired or deleted between List and Load.
			continue
		}
		out = append(out, SessionSummary{SessionID: id, Stage: state.Stage, Rounds: state.Rounds})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSession handles GET /api/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.Runner.Sessions().Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// SubscribeEvents handles GET /api/sessions/{id}/events: it relays the events of
// a run started elsewhere until the run ends or the client leaves.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	setSSEHeaders(w)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()

			var e domain.Event
			if err := json.Unmarshal([]byte(msg), &e); err == nil && (e.Finished || e.Error != "") {
				return
			}
		}
	}
}

// pump writes stream events as SSE until the stream closes or the client leaves.
// A departed client detaches the stream; the run itself continues.
func (s *Server) pump(w http.ResponseWriter, r *http.Request, stream *runner.Stream) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		stream.Detach()
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	setSSEHeaders(w)
	w.Header().Set("X-Session-Id", stream.SessionID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			stream.Detach()
			s.Logger.Info("SSE Client Disconnected", "session_id", stream.SessionID)
			return
		case e, ok := <-stream.C:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.Logger.Error("SSE: failed to encode event", "session_id", stream.SessionID, "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEmptyTask):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSessionTerminated),
		errors.Is(err, runner.ErrSessionRunning),
		errors.Is(err, session.ErrSessionExists):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "error", err)
	} else {
		s.Logger.Warn(op+" rejected", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
