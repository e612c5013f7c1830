package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/parser"
)

const taskPreviewLen = 30

func (e *Engine) intake(state *domain.State) (domain.Delta, error) {
	task := strings.TrimSpace(state.Task)
	if task == "" {
		return domain.Delta{}, domain.ErrEmptyTask
	}

	preview := task
	if r := []rune(task); len(r) > taskPreviewLen {
		preview = string(r[:taskPreviewLen]) + "..."
	}

	return domain.Delta{
		Task:    &task,
		History: []string{fmt.Sprintf("Intake: queued task %q", preview)},
	}, nil
}

func (e *Engine) research(ctx context.Context, state *domain.State) (domain.Delta, error) {
	notes, err := e.oracle.Ask(ctx, researchPrompt(state.Task))
	if err != nil {
		return domain.Delta{}, fmt.Errorf("research: %w", err)
	}

	return domain.Delta{
		History: []string{
			"Research: gathered requirements and approach.",
			domain.ResearchNotesPrefix + strings.TrimSpace(notes),
		},
	}, nil
}

func (e *Engine) generate(ctx context.Context, state *domain.State) (domain.Delta, error) {
	repairing := state.NeedsRepair()

	prompt := writePrompt(state.Task, state.LatestResearchNotes())
	if repairing {
		prompt = fixPrompt(state.Task, state.ArtifactPath, state.ArtifactContent, state.VerifyCommand, state.FailureFeedback)
	}

	var (
		result domain.GenerationResult
		last   error
		ok     bool
	)
	for attempt := 1; attempt <= GenerationAttempts; attempt++ {
		text, err := e.oracle.Ask(ctx, prompt)
		if err != nil {
			return domain.Delta{}, fmt.Errorf("generate: %w", err)
		}

		result, last = parser.Parse(text)
		if e.hooks.OnOracleAttempt != nil {
			e.hooks.OnOracleAttempt(ctx, &domain.OracleAttemptEvent{
				Timestamp: time.Now(),
				SessionID: state.SessionID,
				Attempt:   attempt,
				Malformed: last != nil,
			})
		}
		if last == nil {
			ok = true
			break
		}
		e.logger.Warn("malformed oracle response", "session", state.SessionID, "attempt", attempt, "error", last)
	}
	if !ok {
		return domain.Delta{}, &domain.GenerationExhaustedError{Attempts: GenerationAttempts, Last: last}
	}

	if result.VerifyCommand == "" {
		result.VerifyCommand = e.defaultVerifyCommand
	}

	if err := e.sandbox.Write(result.TargetPath, result.Body); err != nil {
		return domain.Delta{}, fmt.Errorf("generate: %w", err)
	}

	entry := fmt.Sprintf("Generate: wrote code to %s. Verify command: %q.", result.TargetPath, result.VerifyCommand)
	if repairing {
		entry = fmt.Sprintf("Generate: fixed code based on errors. Saved to %s.", result.TargetPath)
	}

	return domain.Delta{
		History:         []string{entry},
		ArtifactPath:    &result.TargetPath,
		ArtifactContent: &result.Body,
		VerifyCommand:   &result.VerifyCommand,
		FailureFeedback: domain.Ptr(""),
		Rounds:          domain.Ptr(state.Rounds + 1),
	}, nil
}

func (e *Engine) verify(ctx context.Context, state *domain.State) (domain.Delta, error) {
	command := state.VerifyCommand
	if command == "" {
		command = e.defaultVerifyCommand
	}

	res := e.sandbox.Execute(ctx, command, e.verifyTimeout)
	e.logger.Debug("verify finished", "session", state.SessionID, "command", command,
		"exit_code", res.ExitCode, "duration", res.Duration)

	if !res.Failed() {
		return domain.Delta{
			History:         []string{"Verify: tests PASSED."},
			FailureFeedback: domain.Ptr(""),
		}, nil
	}

	delta := domain.Delta{
		History:         []string{fmt.Sprintf("Verify: tests FAILED with exit code %d.", res.ExitCode)},
		FailureFeedback: domain.Ptr(feedback(res)),
	}

	// Rounds-1 repairs have already been attempted.
	if e.maxRepairRounds > 0 && state.Rounds-1 >= e.maxRepairRounds {
		return delta, fmt.Errorf("%w: %d rounds", domain.ErrRepairLimitReached, e.maxRepairRounds)
	}

	return delta, nil
}

// feedback picks the failure text for the next repair round. A silent
// failure still yields non-empty text so the loop keeps its control signal.
func feedback(res domain.ExecResult) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(res.Stdout); s != "" {
		return s
	}
	return fmt.Sprintf("command %q exited with code %d", res.Command, res.ExitCode)
}
