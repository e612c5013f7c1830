package domain

import "time"

// GenerationResult is the record the oracle must produce during the generate stage.
type GenerationResult struct {
	TargetPath    string `json:"target_path" mapstructure:"target_path"`
	Body          string `json:"body" mapstructure:"body"`
	VerifyCommand string `json:"verify_command" mapstructure:"verify_command"`
}

// ExecResult is the outcome of a sandboxed command. Failures of any kind are
// represented here with a non-zero ExitCode rather than as errors.
type ExecResult struct {
	Command  string        `json:"command"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Failed reports a non-zero exit.
func (r ExecResult) Failed() bool {
	return r.ExitCode != 0
}
