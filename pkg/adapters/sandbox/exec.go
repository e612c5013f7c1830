package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/aretw0/auraflow/pkg/domain"
)

// DefaultTimeout bounds a command when the caller passes zero.
const DefaultTimeout = 30 * time.Second

// Execute runs command through the shell with the sandbox root as working directory.
// Timeouts and spawn failures come back as ExitCode 1 with an explanatory Stderr.
func (s *Sandbox) Execute(ctx context.Context, command string, timeout time.Duration) domain.ExecResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, s.shell[1:]...), command)
	cmd := exec.CommandContext(ctx, s.shell[0], args...)
	cmd.Dir = s.root
	cmd.Env = append(cmd.Environ(), s.env...)
	// Children holding the pipes open must not stall Wait past the deadline.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := domain.ExecResult{
		Command:  command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return result
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.ExitCode = 1
		result.TimedOut = true
		result.Stderr = fmt.Sprintf("Command execution timed out after %s.", timeout)
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		result.ExitCode = exitErr.ExitCode()
		return result
	}

	result.ExitCode = 1
	result.Stderr = fmt.Sprintf("Execution error: %v", err)
	return result
}
