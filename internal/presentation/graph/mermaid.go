package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/auraflow/pkg/domain"
)

// Overlay contains dynamic session data to visualize on the pipeline graph.
type Overlay struct {
	Visited []domain.Stage
	Current domain.Stage
}

// Edge is one transition of the pipeline graph.
type Edge struct {
	From, To domain.Stage
	Label    string
}

// Pipeline lists the stages in execution order followed by the terminal stages.
var Pipeline = []domain.Stage{
	domain.StageIntake,
	domain.StageResearch,
	domain.StageGenerate,
	domain.StageVerify,
	domain.StageDone,
	domain.StageFailed,
}

// Edges mirrors the transition function of the runtime, plus the failure exits.
var Edges = []Edge{
	{From: domain.StageIntake, To: domain.StageResearch},
	{From: domain.StageResearch, To: domain.StageGenerate},
	{From: domain.StageGenerate, To: domain.StageVerify},
	{From: domain.StageVerify, To: domain.StageGenerate, Label: "repair"},
	{From: domain.StageVerify, To: domain.StageDone, Label: "pass"},
}

// OverlayFor derives the overlay from a session's history and stage cursor.
func OverlayFor(state *domain.State) *Overlay {
	if state == nil {
		return nil
	}
	o := &Overlay{Current: state.Stage}
	seen := make(map[domain.Stage]bool)
	for _, entry := range state.History {
		label, _, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		stage := domain.Stage(strings.ToLower(label))
		if seen[stage] || !isPipelineStage(stage) {
			continue
		}
		seen[stage] = true
		o.Visited = append(o.Visited, stage)
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the pipeline.
// It applies semantic styling:
// - Intake: ((Circle))
// - Verify: {Decision}
// - Terminal: ([Stadium])
// - Default: [Rectangle]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, stage := range Pipeline {
		opener, closer := "[", "]"
		switch {
		case stage == domain.StageIntake:
			opener, closer = "((", "))"
		case stage == domain.StageVerify:
			opener, closer = "{", "}"
		case stage.IsTerminal():
			opener, closer = "([", "])"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", stage, opener, stage, closer))
	}

	for _, e := range Edges {
		arrow := "-->"
		if e.Label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", e.Label)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", e.From, arrow, e.To))
	}

	// Every running stage can fail
	for _, stage := range Pipeline {
		if !stage.IsTerminal() {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", stage, domain.StageFailed))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for _, stage := range overlay.Visited {
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", stage))
		}
		if overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", overlay.Current))
		}
	}

	return sb.String()
}

func isPipelineStage(s domain.Stage) bool {
	for _, p := range Pipeline {
		if p == s && !p.IsTerminal() {
			return true
		}
	}
	return false
}
