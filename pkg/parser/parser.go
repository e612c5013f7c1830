// Package parser decodes oracle text into a domain.GenerationResult.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

const fence = "```"

var requiredKeys = []string{"target_path", "body", "verify_command"}

// StripFences removes one surrounding markdown code fence, including an
// optional language tag such as ```json, and trims whitespace.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, fence); ok {
		// Drop the language tag up to the first non tag rune.
		i := 0
		for i < len(rest) && isTagByte(rest[i]) {
			i++
		}
		text = rest[i:]
	}
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutSuffix(text, fence); ok {
		text = rest
	}
	return strings.TrimSpace(text)
}

func isTagByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '+' || b == '_':
		return true
	}
	return false
}

// Parse decodes text into a GenerationResult. All three keys must be present
// and hold strings; a blank target_path is rejected. A blank verify_command is
// returned as-is so the caller can substitute its default.
func Parse(text string) (domain.GenerationResult, error) {
	var result domain.GenerationResult

	cleaned := StripFences(text)
	if cleaned == "" {
		return result, &domain.MalformedResponseError{Reason: "empty response"}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return result, &domain.MalformedResponseError{Reason: "response is not a JSON object", Cause: err}
	}

	for _, key := range requiredKeys {
		v, ok := raw[key]
		if !ok {
			return result, &domain.MalformedResponseError{Reason: "missing field " + key}
		}
		if _, isString := v.(string); !isString {
			return result, &domain.MalformedResponseError{Reason: "field " + key + " must be a string"}
		}
	}

	if err := mapstructure.Decode(raw, &result); err != nil {
		return result, &domain.MalformedResponseError{Reason: "decode failed", Cause: err}
	}

	result.TargetPath = strings.TrimSpace(result.TargetPath)
	result.VerifyCommand = strings.TrimSpace(result.VerifyCommand)
	if result.TargetPath == "" {
		return result, &domain.MalformedResponseError{Reason: "target_path is empty"}
	}

	return result, nil
}
