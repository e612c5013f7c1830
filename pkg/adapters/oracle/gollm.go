package oracle

import (
	"context"
	"fmt"

	"github.com/aretw0/auraflow/pkg/ports"
	"github.com/teilomillet/gollm"
)

// Gollm implements ports.Oracle on top of a gollm.LLM.
type Gollm struct {
	provider string
	generate func(ctx context.Context, p *gollm.Prompt) (string, error)
}

// GollmConfig holds the settings used to build a gollm client.
type GollmConfig struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// NewGollm creates a Gollm oracle. If APIKey is empty, gollm reads it from the environment.
func NewGollm(cfg GollmConfig, extra ...gollm.ConfigOption) (*Gollm, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	opts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(cfg.Model),
		gollm.SetMaxTokens(cfg.MaxTokens),
		gollm.SetTemperature(cfg.Temperature),
		gollm.SetMaxRetries(0), // generate retries are the pipeline's concern
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}
	opts = append(opts, extra...)

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm client for provider %s: %w", cfg.Provider, err)
	}

	return NewGollmFromLLM(cfg.Provider, llm), nil
}

// NewGollmFromLLM wraps an existing client.
func NewGollmFromLLM(provider string, llm gollm.LLM) *Gollm {
	return &Gollm{
		provider: provider,
		generate: func(ctx context.Context, p *gollm.Prompt) (string, error) {
			return llm.Generate(ctx, p)
		},
	}
}

// Ask sends the prompt and returns the raw completion text.
func (g *Gollm) Ask(ctx context.Context, prompt []ports.Message) (string, error) {
	system, user := flatten(prompt)

	var promptOpts []gollm.PromptOption
	if system != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}

	text, err := g.generate(ctx, gollm.NewPrompt(user, promptOpts...))
	if err != nil {
		return "", unavailable(g.provider, err)
	}
	return text, nil
}
