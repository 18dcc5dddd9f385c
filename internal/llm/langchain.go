package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider represents an AI provider type
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderOllama Provider = "ollama"
)

// Options configures the langchain-backed inference backend
type Options struct {
	Provider    Provider `json:"provider"`
	APIKey      string   `json:"api_key"`
	BaseURL     string   `json:"base_url,omitempty"`
	Model       string   `json:"model"`
	Temperature float64  `json:"temperature"`
}

// LangChainBackend implements InferenceBackend over a langchaingo model
type LangChainBackend struct {
	model   llms.Model
	options Options
}

// NewLangChainBackend creates a backend for the configured provider
func NewLangChainBackend(ctx context.Context, options Options) (*LangChainBackend, error) {
	var model llms.Model
	var err error

	log.Debug().
		Str("provider", string(options.Provider)).
		Str("model", options.Model).
		Float64("temperature", options.Temperature).
		Msg("Creating inference backend")

	switch options.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithToken(options.APIKey)}
		if options.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(options.BaseURL))
		}
		if options.Model != "" {
			opts = append(opts, openai.WithModel(options.Model))
		}
		model, err = openai.New(opts...)
	case ProviderGemini:
		model, err = googleai.New(ctx, googleai.WithAPIKey(options.APIKey))
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(options.Model)}
		if options.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(options.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", options.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create model for provider %s: %w", options.Provider, err)
	}

	return &LangChainBackend{model: model, options: options}, nil
}

// Complete implements InferenceBackend
func (b *LangChainBackend) Complete(ctx context.Context, messages []Message, modelType string) (*Completion, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, m.Content))
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(b.options.Temperature),
	}
	if modelType != "" {
		callOpts = append(callOpts, llms.WithModel(modelType))
	} else if b.options.Model != "" {
		callOpts = append(callOpts, llms.WithModel(b.options.Model))
	}

	resp, err := b.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("inference backend returned no choices")
	}

	choice := resp.Choices[0]
	completion := &Completion{Content: strings.TrimSpace(choice.Content)}

	// GenerationInfo keys are provider-specific; OpenAI-compatible backends
	// use these names
	if n, ok := choice.GenerationInfo["PromptTokens"].(int); ok {
		completion.Usage.PromptTokens = n
	}
	if n, ok := choice.GenerationInfo["CompletionTokens"].(int); ok {
		completion.Usage.CompletionTokens = n
	}

	return completion, nil
}
