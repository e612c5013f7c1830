package oracle

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/aretw0/auraflow/pkg/ports"
)

// unavailable wraps a client failure so callers can match domain.ErrOracleUnavailable.
// Context cancellation is passed through untouched.
func unavailable(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var typed *domain.OracleUnavailableError
	if errors.As(err, &typed) {
		return err
	}
	return &domain.OracleUnavailableError{Provider: provider, Cause: classify(err)}
}

// Causes recognised from provider error text.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limited")
	ErrServer         = errors.New("provider server error")
)

type classifiedError struct {
	kind  error
	cause error
}

func (e *classifiedError) Error() string   { return e.kind.Error() + ": " + e.cause.Error() }
func (e *classifiedError) Unwrap() []error { return []error{e.kind, e.cause} }

// classify tags err with a coarse cause based on its message.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		return &classifiedError{kind: ErrAuthentication, cause: err}
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return &classifiedError{kind: ErrRateLimited, cause: err}
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "internal server"):
		return &classifiedError{kind: ErrServer, cause: err}
	}
	return err
}

// flatten splits a role-tagged prompt into one system text and one user text,
// for clients that accept a single prompt plus a system instruction.
func flatten(prompt []ports.Message) (system, user string) {
	var sys, usr []string
	for _, m := range prompt {
		if m.Role == ports.RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		usr = append(usr, m.Content)
	}
	return strings.Join(sys, "\n\n"), strings.Join(usr, "\n\n")
}
