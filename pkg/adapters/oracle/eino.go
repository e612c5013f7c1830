package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/auraflow/pkg/ports"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Eino implements ports.Oracle on top of an eino chat model.
type Eino struct {
	name  string
	model model.BaseChatModel
}

// NewEino wraps an existing eino chat model. name labels errors.
func NewEino(name string, m model.BaseChatModel) *Eino {
	return &Eino{name: name, model: m}
}

// EinoOpenAIConfig configures an OpenAI compatible eino backend.
type EinoOpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// NewEinoOpenAI builds an Eino oracle against any OpenAI compatible endpoint.
func NewEinoOpenAI(ctx context.Context, cfg EinoOpenAIConfig) (*Eino, error) {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create openai chat model: %w", err)
	}

	return NewEino("openai", m), nil
}

// Ask sends the prompt and returns the assistant message content.
func (e *Eino) Ask(ctx context.Context, prompt []ports.Message) (string, error) {
	msgs := make([]*schema.Message, 0, len(prompt))
	for _, m := range prompt {
		if m.Role == ports.RoleSystem {
			msgs = append(msgs, schema.SystemMessage(m.Content))
			continue
		}
		msgs = append(msgs, schema.UserMessage(m.Content))
	}

	resp, err := e.model.Generate(ctx, msgs)
	if err != nil {
		return "", unavailable(e.name, err)
	}
	if resp == nil {
		return "", unavailable(e.name, fmt.Errorf("model returned nil message"))
	}
	return resp.Content, nil
}
