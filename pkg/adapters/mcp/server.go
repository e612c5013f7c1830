package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/auraflow"
	"github.com/aretw0/auraflow/internal/logging"
	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionsURI is the resource listing every persisted session.
const SessionsURI = "auraflow://sessions"

// RunResponse is the payload returned by run_task and get_session.
type RunResponse struct {
	State *domain.State `json:"state" jsonschema_description:"The checkpointed session state"`
	Error string        `json:"error,omitempty" jsonschema_description:"Why the run failed, if it did"`
}

// SessionEntry is one element of list_sessions and the sessions resource.
type SessionEntry struct {
	SessionID string       `json:"session_id"`
	Stage     domain.Stage `json:"stage"`
	Rounds    int          `json:"rounds"`
}

// Server wraps the Runner and exposes it as an MCP Server.
type Server struct {
	runner    *runner.Runner
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(r *runner.Runner, opts ...Option) *Server {
	s := &Server{
		runner:    r,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("auraflow-mcp", strings.TrimSpace(auraflow.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: run_task
	s.mcpServer.AddTool(mcp.NewTool("run_task",
		mcp.WithDescription("Run a coding task to completion: research, generate a program, verify it in the sandbox and repair until it passes."),
		mcp.WithString("task", mcp.Required(), mcp.Description("Natural-language description of the program to build")),
	), s.handleRunTask)

	// TOOL: resume_session
	s.mcpServer.AddTool(mcp.NewTool("resume_session",
		mcp.WithDescription("Resume an interrupted session from its last checkpoint and wait for it to finish."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to resume")),
	), s.handleResumeSession)

	// TOOL: get_session
	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the checkpointed state of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to inspect")),
	), s.handleGetSession)

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List persisted sessions with their current stage."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entries, err := s.sessions(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		return jsonResult(entries)
	})
}

func (s *Server) handleRunTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := request.RequireString("task")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stream, err := s.runner.Start(ctx, task)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run rejected: %v", err)), nil
	}
	s.logger.Info("MCP run started", "session_id", stream.SessionID)
	return s.await(ctx, stream)
}

func (s *Server) handleResumeSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stream, err := s.runner.Resume(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resume rejected: %v", err)), nil
	}
	return s.await(ctx, stream)
}

// await drains the stream until the run ends or the client goes away.
// A departed client leaves the run going; it can be picked up with get_session.
func (s *Server) await(ctx context.Context, stream *runner.Stream) (*mcp.CallToolResult, error) {
	for {
		select {
		case _, ok := <-stream.C:
			if !ok {
				state, runErr := stream.Wait()
				resp := RunResponse{State: state}
				if runErr != nil {
					resp.Error = runErr.Error()
				}
				result, err := jsonResult(resp)
				if err == nil && runErr != nil {
					result.IsError = true
				}
				return result, err
			}
		case <-ctx.Done():
			stream.Detach()
			return nil, ctx.Err()
		}
	}
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state, err := s.runner.Sessions().Load(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	return jsonResult(RunResponse{State: state})
}

func (s *Server) sessions(ctx context.Context) ([]SessionEntry, error) {
	mgr := s.runner.Sessions()
	ids, err := mgr.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]SessionEntry, 0, len(ids))
	for _, id := range ids {
		state, err := mgr.Load(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, SessionEntry{SessionID: id, Stage: state.Stage, Rounds: state.Rounds})
	}
	return out, nil
}

func (s *Server) registerResources() {
	// EXPOSE: auraflow://sessions
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Persisted Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries, err := s.sessions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		jsonBytes, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SessionsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
