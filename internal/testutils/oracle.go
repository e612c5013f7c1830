package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/auraflow/pkg/ports"
)

// Reply is one scripted oracle answer. Err takes precedence over Text.
type Reply struct {
	Text string
	Err  error
}

// ScriptedOracle replays a fixed list of replies and records every prompt it receives.
// Once the script runs out it keeps returning the last reply.
type ScriptedOracle struct {
	mu      sync.Mutex
	replies []Reply
	prompts [][]ports.Message
}

// NewScriptedOracle builds an oracle answering with texts in order.
func NewScriptedOracle(texts ...string) *ScriptedOracle {
	o := &ScriptedOracle{}
	for _, t := range texts {
		o.replies = append(o.replies, Reply{Text: t})
	}
	return o
}

// Then appends a reply to the script.
func (o *ScriptedOracle) Then(r Reply) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.replies = append(o.replies, r)
	return o
}

// Ask implements ports.Oracle.
func (o *ScriptedOracle) Ask(ctx context.Context, prompt []ports.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.prompts = append(o.prompts, append([]ports.Message(nil), prompt...))
	if len(o.replies) == 0 {
		return "", fmt.Errorf("scripted oracle: no replies configured")
	}

	idx := len(o.prompts) - 1
	if idx >= len(o.replies) {
		idx = len(o.replies) - 1
	}
	r := o.replies[idx]
	return r.Text, r.Err
}

// Calls returns how many times Ask was invoked.
func (o *ScriptedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.prompts)
}

// Prompt returns the i-th recorded prompt.
func (o *ScriptedOracle) Prompt(i int) []ports.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prompts[i]
}

// UserText returns the concatenated user content of the i-th prompt.
func (o *ScriptedOracle) UserText(i int) string {
	var out string
	for _, m := range o.Prompt(i) {
		if m.Role == ports.RoleUser {
			out += m.Content
		}
	}
	return out
}

// Record renders a generation record the way a well-behaved oracle would.
func Record(path, body, command string) string {
	data, _ := json.Marshal(map[string]string{
		"target_path":    path,
		"body":           body,
		"verify_command": command,
	})
	return string(data)
}
