package ports

import "context"

// Role tags a prompt message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged entry of an oracle prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Oracle is the reasoning service queried for free text.
// Implementations do not retry or interpret the response. Transport and
// authentication failures are reported as *domain.OracleUnavailableError.
type Oracle interface {
	Ask(ctx context.Context, prompt []Message) (string, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, prompt []Message) (string, error)

// Ask calls f.
func (f OracleFunc) Ask(ctx context.Context, prompt []Message) (string, error) {
	return f(ctx, prompt)
}
