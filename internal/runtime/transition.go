package runtime

import "github.com/aretw0/auraflow/pkg/domain"

// Next returns the stage following stage. hasFeedback only matters after
// verification, where it routes back to generate. Terminal stages map to themselves.
func Next(stage domain.Stage, hasFeedback bool) domain.Stage {
	switch stage {
	case domain.StageIntake:
		return domain.StageResearch
	case domain.StageResearch:
		return domain.StageGenerate
	case domain.StageGenerate:
		return domain.StageVerify
	case domain.StageVerify:
		if hasFeedback {
			return domain.StageGenerate
		}
		return domain.StageDone
	}
	return stage
}
