package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultSecretPatterns match common credential shapes that tend to leak into
// research notes and verifier output.
var DefaultSecretPatterns = []string{
	`sk-[A-Za-z0-9_-]{16,}`,                  // OpenAI style keys
	`AKIA[0-9A-Z]{16}`,                       // AWS access key IDs
	`gh[pousr]_[A-Za-z0-9]{36,}`,             // GitHub tokens
	`(?i)bearer\s+[A-Za-z0-9._~+/=-]{16,}`,   // Authorization headers
	`-----BEGIN [A-Z ]*PRIVATE KEY-----[^-]*`, // PEM bodies
}

type redactionMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks every match of the
// patterns in the free-text fields of a checkpoint before it is persisted.
// The in-memory state is left untouched.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	// Clone to avoid side effects on the state driving the run.
	cloned := state.Clone()

	cloned.Task = m.mask(cloned.Task)
	cloned.ArtifactContent = m.mask(cloned.ArtifactContent)
	cloned.FailureFeedback = m.mask(cloned.FailureFeedback)
	cloned.Error = m.mask(cloned.Error)
	for i, entry := range cloned.History {
		cloned.History[i] = m.mask(entry)
	}

	return m.next.Save(ctx, sessionID, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactionMiddleware) mask(s string) string {
	if s == "" {
		return s
	}
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
