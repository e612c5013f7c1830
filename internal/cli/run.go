package cli

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/auraflow"
	"github.com/aretw0/auraflow/internal/presentation/tui"
	"github.com/aretw0/auraflow/pkg/runner"
)

// RunOptions controls how a run is presented.
type RunOptions struct {
	// JSON prints events as JSON Lines instead of human-readable text.
	JSON bool
	// Out defaults to stdout.
	Out io.Writer
}

func (o RunOptions) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o RunOptions) sink() runner.Sink {
	w := o.out()
	switch {
	case o.JSON:
		return runner.NewJSONSink(w)
	case tui.IsTerminal(w):
		return tui.NewRichSink(w)
	}
	return runner.NewTextSink(w)
}

// RunTask starts a new session for task and streams its events until it ends.
func RunTask(ctx context.Context, app *App, task string, opts RunOptions) error {
	if !opts.JSON && tui.IsTerminal(opts.out()) {
		tui.PrintBanner(opts.out(), auraflow.Version)
	}

	stream, err := app.Runner.Start(ctx, task)
	if err != nil {
		return err
	}
	app.Logger.Info("Session Created", "session_id", stream.SessionID)
	if !opts.JSON {
		printSystemMessage(opts.out(), "Session '%s' active.", stream.SessionID)
	}

	return follow(ctx, stream, opts)
}

// ResumeTask continues a persisted session and streams its events until it ends.
func ResumeTask(ctx context.Context, app *App, sessionID string, opts RunOptions) error {
	stream, err := app.Runner.Resume(ctx, sessionID)
	if err != nil {
		return err
	}
	app.Logger.Info("Session Resumed", "session_id", sessionID)
	if !opts.JSON {
		printSystemMessage(opts.out(), "Resuming session '%s'...", sessionID)
	}

	return follow(ctx, stream, opts)
}

// follow pumps the stream into the selected sink. Cancelling ctx detaches
// from the stream; the session stays checkpointed at its last finished stage.
func follow(ctx context.Context, stream *runner.Stream, opts RunOptions) error {
	done := make(chan error, 1)
	go func() {
		done <- runner.Pump(stream, opts.sink())
	}()

	select {
	case err := <-done:
		state, _ := stream.Wait()
		if !opts.JSON && state != nil {
			if state.ArtifactPath != "" {
				printSystemMessage(opts.out(), "Artifact: %s", state.ArtifactPath)
			}
			printSystemMessage(opts.out(), "Finished at '%s' stage.", state.Stage)
		}
		return err
	case <-ctx.Done():
		stream.Detach()
		if !opts.JSON {
			printSystemMessage(opts.out(), "Interrupted. Resume with: auraflow resume %s", stream.SessionID)
		}
		return handleExecutionError(ctx.Err())
	}
}
