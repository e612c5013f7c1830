package testutils

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/auraflow/pkg/adapters/sandbox"
	"github.com/stretchr/testify/require"
)

// SetupSandbox creates a sandbox rooted in a fresh temporary directory.
// It fails the test immediately on error.
func SetupSandbox(t *testing.T, opts ...sandbox.Option) *sandbox.Sandbox {
	t.Helper()

	sb, err := sandbox.New(filepath.Join(t.TempDir(), "sandbox"), opts...)
	require.NoError(t, err, "Failed to create sandbox")

	return sb
}
