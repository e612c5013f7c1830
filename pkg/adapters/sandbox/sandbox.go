package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/auraflow/pkg/domain"
)

// Sandbox implements ports.Sandbox on the local filesystem.
// Every path it touches is resolved beneath Root.
type Sandbox struct {
	root string
	env  []string
	// shell runs commands as: shell[0] shell[1:]... command
	shell []string
}

// Option configures the sandbox.
type Option func(*Sandbox)

// WithEnv appends KEY=VALUE pairs to the environment of executed commands.
func WithEnv(env map[string]string) Option {
	return func(s *Sandbox) {
		for k, v := range env {
			s.env = append(s.env, fmt.Sprintf("%s=%s", k, v))
		}
	}
}

// WithShell overrides the interpreter used by Execute. Defaults to "sh -c".
func WithShell(shell ...string) Option {
	return func(s *Sandbox) {
		if len(shell) > 0 {
			s.shell = shell
		}
	}
}

// New creates a sandbox rooted at root. The directory is created if missing.
func New(root string, opts ...Option) (*Sandbox, error) {
	if root == "" {
		return nil, fmt.Errorf("sandbox root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, &domain.IOError{Op: "mkdir", Path: abs, Cause: err}
	}

	s := &Sandbox{
		root:  filepath.Clean(abs),
		shell: []string{"sh", "-c"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute sandbox directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve joins path onto the root and rejects anything landing outside it.
// Absolute paths are rejected outright.
func (s *Sandbox) Resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", &domain.PathEscapeError{Path: path, Root: s.root}
	}
	full := filepath.Clean(filepath.Join(s.root, path))
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", &domain.PathEscapeError{Path: path, Root: s.root}
	}
	return full, nil
}

// Write stores content at path, creating parent directories as needed.
func (s *Sandbox) Write(path, content string) error {
	full, err := s.Resolve(path)
	if err != nil {
		return err
	}
	if full == s.root {
		return &domain.IOError{Op: "write", Path: path, Cause: fmt.Errorf("path is the sandbox root")}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return &domain.IOError{Op: "mkdir", Path: path, Cause: err}
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return &domain.IOError{Op: "write", Path: path, Cause: err}
	}
	return nil
}

// Read returns the content stored at path.
func (s *Sandbox) Read(path string) (string, error) {
	full, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", &domain.IOError{Op: "read", Path: path, Cause: err}
	}
	return string(data), nil
}
