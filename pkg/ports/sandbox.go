package ports

import (
	"context"
	"time"

	"github.com/aretw0/auraflow/pkg/domain"
)

// Sandbox confines file and command operations beneath a single root directory.
type Sandbox interface {
	// Resolve maps a relative path to an absolute one inside the root.
	// Returns *domain.PathEscapeError when the path would leave the root.
	Resolve(path string) (string, error)

	// Write stores content at path, creating parent directories.
	Write(path, content string) error

	// Read returns the content stored at path.
	Read(path string) (string, error)

	// Execute runs command with the root as working directory. It never fails:
	// timeouts and spawn errors are reported as a non-zero ExitCode.
	Execute(ctx context.Context, command string, timeout time.Duration) domain.ExecResult
}
