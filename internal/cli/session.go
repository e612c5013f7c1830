package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/auraflow/internal/presentation/graph"
)

// ListSessions prints every stored session with its stage and round count.
func ListSessions(ctx context.Context, app *App, w io.Writer) error {
	ids, err := app.Sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTAGE\tROUNDS\tUPDATED")
	for _, id := range ids {
		state, err := app.Sessions.Load(ctx, id)
		if err != nil {
			// Expired between List and Load
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", id, state.Stage, state.Rounds, state.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

// InspectSession prints the checkpoint as indented JSON, or as a Mermaid
// pipeline graph highlighting the visited stages.
func InspectSession(ctx context.Context, app *App, sessionID string, asGraph bool, w io.Writer) error {
	state, err := app.Sessions.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}

	if asGraph {
		_, err := io.WriteString(w, graph.GenerateMermaid(graph.OverlayFor(state)))
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling state: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// RemoveSessions deletes the given sessions, or every session when all is set.
func RemoveSessions(ctx context.Context, app *App, ids []string, all bool, w io.Writer) error {
	if all {
		stored, err := app.Sessions.List(ctx)
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}
		ids = stored
	}

	var failed int
	for _, id := range ids {
		if err := app.Sessions.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("failed to remove %d session(s)", failed)
	}
	return nil
}
