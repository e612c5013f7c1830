package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/auraflow/pkg/adapters/http"
	"github.com/aretw0/auraflow/pkg/adapters/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShutdownTimeout bounds how long in-flight requests get once a signal arrives.
const ShutdownTimeout = 5 * time.Second

// NewHTTPHandler builds the SSE API handler for app, including /metrics.
func NewHTTPHandler(app *App) http.Handler {
	return httpAdapter.NewHandler(app.Runner,
		httpAdapter.WithStreams(app.Streams),
		httpAdapter.WithLogger(app.Logger),
		httpAdapter.WithAllowedOrigin(app.Config.Server.AllowedOrigin),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})),
	)
}

// Serve runs the HTTP API on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, app *App, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHTTPHandler(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting auraflow server", "address", addr, "sandbox", app.Sandbox.Root())
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		app.Logger.Info("Start shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "error", err)
			return srv.Close()
		}
		app.Logger.Info("Server stopped gracefully")
		return nil
	}
}

// ServeMCP runs the MCP server over stdio or SSE.
func ServeMCP(ctx context.Context, app *App, transport string, port int) error {
	srv := mcp.NewServer(app.Runner, mcp.WithLogger(app.Logger))

	switch transport {
	case "stdio":
		app.Logger.Info("Starting auraflow MCP Server (Stdio)")
		return srv.ServeStdio()
	case "sse":
		app.Logger.Info("Starting auraflow MCP Server (SSE)", "port", port)
		return srv.ServeSSE(ctx, port)
	}
	return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
}
