package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionTerminated is returned when resuming a session that already reached DONE or FAILED.
var ErrSessionTerminated = errors.New("session already terminated")

// ErrEmptyTask is returned when a run is requested without an objective.
var ErrEmptyTask = errors.New("task cannot be empty")

// ErrRepairLimitReached is returned when the optional repair round cap is exceeded.
var ErrRepairLimitReached = errors.New("repair round limit reached")

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrPathEscape          = errors.New("path escapes sandbox root")
	ErrIO                  = errors.New("sandbox io failure")
	ErrOracleUnavailable   = errors.New("oracle unavailable")
	ErrMalformedResponse   = errors.New("malformed oracle response")
	ErrGenerationExhausted = errors.New("generation attempts exhausted")
)

// PathEscapeError reports a path that resolves outside the sandbox root.
type PathEscapeError struct {
	Path string
	Root string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("access denied: path %q is outside the sandbox %q", e.Path, e.Root)
}

func (e *PathEscapeError) Is(target error) bool { return target == ErrPathEscape }

// IOError wraps an underlying filesystem failure inside the sandbox.
type IOError struct {
	Op    string
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// OracleUnavailableError reports a transport or authentication failure talking to the oracle.
type OracleUnavailableError struct {
	Provider string
	Cause    error
}

func (e *OracleUnavailableError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("oracle unavailable: %v", e.Cause)
	}
	return fmt.Sprintf("oracle %s unavailable: %v", e.Provider, e.Cause)
}

func (e *OracleUnavailableError) Unwrap() error { return e.Cause }

func (e *OracleUnavailableError) Is(target error) bool { return target == ErrOracleUnavailable }

// MalformedResponseError reports oracle text that could not be decoded into a GenerationResult.
type MalformedResponseError struct {
	Reason string
	Cause  error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Cause)
	}
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// GenerationExhaustedError is returned when every generate attempt produced malformed text.
type GenerationExhaustedError struct {
	Attempts int
	Last     error
}

func (e *GenerationExhaustedError) Error() string {
	return fmt.Sprintf("failed to generate code after %d attempts: %v", e.Attempts, e.Last)
}

func (e *GenerationExhaustedError) Unwrap() error { return e.Last }

func (e *GenerationExhaustedError) Is(target error) bool { return target == ErrGenerationExhausted }
