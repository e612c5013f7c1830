package runtime

import (
	"fmt"

	"github.com/aretw0/auraflow/pkg/ports"
)

const researchSystemPrompt = "You are an expert technical researcher. Given the user's task, respond with a concise " +
	"architectural approach, suggested file names, and shell commands to test the code. Output everything as plain text."

const recordInstruction = "You MUST respond with ONLY a valid JSON object containing exactly three string keys: " +
	"'target_path' (a relative file path), 'body' (the full file content), and 'verify_command' " +
	"(a shell command that exits 0 only when the code works). Do not wrap the object in markdown code fences."

const writeSystemPrompt = "You are an expert programmer. Write the full requested code. Include unit tests in the " +
	"same file if possible, or build a self-testing script if necessary. " + recordInstruction

const fixSystemPrompt = "You are an expert programmer. Fix the code to resolve the reported test errors. " + recordInstruction

func researchPrompt(task string) []ports.Message {
	return []ports.Message{
		{Role: ports.RoleSystem, Content: researchSystemPrompt},
		{Role: ports.RoleUser, Content: task},
	}
}

func writePrompt(task, notes string) []ports.Message {
	return []ports.Message{
		{Role: ports.RoleSystem, Content: writeSystemPrompt},
		{Role: ports.RoleUser, Content: fmt.Sprintf("Task: %s\n\nResearch Notes:\n%s", task, notes)},
	}
}

func fixPrompt(task, path, content, command, feedback string) []ports.Message {
	return []ports.Message{
		{Role: ports.RoleSystem, Content: fixSystemPrompt},
		{Role: ports.RoleUser, Content: fmt.Sprintf(
			"Original Task: %s\n\nCurrent File: %s\n\nCurrent Code (failing):\n%s\n\nVerify Command: %s\n\nTest Errors:\n%s\n\n"+
				"Please provide the corrected code, the file path to save it to, and the command to run the tests.",
			task, path, content, command, feedback)},
	}
}
