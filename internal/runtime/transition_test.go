package runtime

import (
	"testing"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		stage       domain.Stage
		hasFeedback bool
		want        domain.Stage
	}{
		{domain.StageIntake, false, domain.StageResearch},
		{domain.StageResearch, false, domain.StageGenerate},
		{domain.StageGenerate, false, domain.StageVerify},
		{domain.StageGenerate, true, domain.StageVerify},
		{domain.StageVerify, true, domain.StageGenerate},
		{domain.StageVerify, false, domain.StageDone},
		{domain.StageDone, false, domain.StageDone},
		{domain.StageFailed, true, domain.StageFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Next(tt.stage, tt.hasFeedback), "%s (feedback=%v)", tt.stage, tt.hasFeedback)
	}
}

func TestFeedback(t *testing.T) {
	assert.Equal(t, "boom", feedback(domain.ExecResult{Stderr: "  boom\n", Stdout: "out", ExitCode: 1}))
	assert.Equal(t, "out", feedback(domain.ExecResult{Stderr: " \n", Stdout: "out\n", ExitCode: 1}))
	assert.Equal(t, `command "false" exited with code 1`, feedback(domain.ExecResult{Command: "false", ExitCode: 1}))
}
