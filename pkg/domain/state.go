package domain

import (
	"strings"
	"time"
)

// Stage identifies a node of the fixed pipeline graph.
type Stage string

const (
	StageIntake   Stage = "intake"
	StageResearch Stage = "research"
	StageGenerate Stage = "generate"
	StageVerify   Stage = "verify"
	StageDone     Stage = "done"   // Terminal success
	StageFailed   Stage = "failed" // Terminal, non-recoverable error
)

// IsTerminal reports whether no further stage runs after s.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// ResearchNotesPrefix marks the history entry holding the raw research response.
const ResearchNotesPrefix = "Research notes:\n"

// State is the record threaded through every stage of a session run.
type State struct {
	// SessionID identifies the run. It is also the checkpoint key.
	SessionID string `json:"session_id"`

	// Stage is the next stage to execute, or a terminal stage once the run ended.
	Stage Stage `json:"stage"`

	// History is the human-readable trace. Append-only.
	History []string `json:"history"`

	// Task is the objective, set once at intake.
	Task string `json:"task"`

	// ArtifactPath is the sandbox-relative path of the most recent artifact.
	ArtifactPath string `json:"artifact_path,omitempty"`

	// ArtifactContent is the most recent generated body.
	ArtifactContent string `json:"artifact_content,omitempty"`

	// FailureFeedback holds the last verification failure. Non-empty means repair is needed.
	FailureFeedback string `json:"failure_feedback,omitempty"`

	// VerifyCommand validates the artifact inside the sandbox.
	VerifyCommand string `json:"verify_command,omitempty"`

	// Rounds counts completed generate rounds.
	Rounds int `json:"rounds"`

	// Error carries the fatal message when Stage == StageFailed.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed holds the encrypted checkpoint when the store encrypts at rest.
	// Only envelopes written by the encryption middleware set it.
	Sealed string `json:"sealed,omitempty"`
}

// NewState creates a clean state positioned at the intake stage.
// The task is the raw request; intake normalizes it.
func NewState(sessionID, task string) *State {
	now := time.Now().UTC()
	return &State{
		SessionID: sessionID,
		Stage:     StageIntake,
		History:   []string{},
		Task:      task,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.History = append([]string(nil), s.History...)
	return &c
}

// NeedsRepair reports whether the last verification left outstanding failure feedback.
func (s *State) NeedsRepair() bool {
	return s.FailureFeedback != ""
}

// LatestResearchNotes returns the most recent research notes recorded in the history,
// without the marker prefix. Empty when research has not run.
func (s *State) LatestResearchNotes() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if notes, ok := strings.CutPrefix(s.History[i], ResearchNotesPrefix); ok {
			return notes
		}
	}
	return ""
}

// Apply merges a stage delta into the state in place.
func (s *State) Apply(d Delta) {
	s.History = append(s.History, d.History...)
	if d.Task != nil {
		s.Task = *d.Task
	}
	if d.ArtifactPath != nil {
		s.ArtifactPath = *d.ArtifactPath
	}
	if d.ArtifactContent != nil {
		s.ArtifactContent = *d.ArtifactContent
	}
	if d.VerifyCommand != nil {
		s.VerifyCommand = *d.VerifyCommand
	}
	if d.FailureFeedback != nil {
		s.FailureFeedback = *d.FailureFeedback
	}
	if d.Rounds != nil {
		s.Rounds = *d.Rounds
	}
	if d.Error != nil {
		s.Error = *d.Error
	}
	s.UpdatedAt = time.Now().UTC()
}

// Delta is the partial update a stage returns. Nil fields are left untouched;
// History entries are appended.
type Delta struct {
	History         []string `json:"history,omitempty"`
	Task            *string  `json:"task,omitempty"`
	ArtifactPath    *string  `json:"artifact_path,omitempty"`
	ArtifactContent *string  `json:"artifact_content,omitempty"`
	VerifyCommand   *string  `json:"verify_command,omitempty"`
	FailureFeedback *string  `json:"failure_feedback,omitempty"`
	Rounds          *int     `json:"rounds,omitempty"`
	Error           *string  `json:"error,omitempty"`
}

// Ptr returns a pointer to v. Handy for building deltas.
func Ptr[T any](v T) *T {
	return &v
}
