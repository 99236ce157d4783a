package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/auto-market-pulse/pulse-cli/pkg/anthropic"
	"github.com/auto-market-pulse/pulse-cli/pkg/ollama"
	"github.com/auto-market-pulse/pulse-cli/pkg/openrouter"
)

// openRouterGenerator adapts the OpenRouter client to the Generator interface.
type openRouterGenerator struct {
	client openrouter.Client
	model  string
}

// NewOpenRouter wraps an OpenRouter client as a gateway provider.
func NewOpenRouter(client openrouter.Client, model string) Generator {
	return &openRouterGenerator{client: client, model: model}
}

func (g *openRouterGenerator) Name() string { return "openrouter" }

func (g *openRouterGenerator) Generate(ctx context.Context, msgs []Message, opts Options) (string, error) {
	req := openrouter.ChatCompletionRequest{
		Model:    g.model,
		Messages: make([]openrouter.Message, len(msgs)),
	}
	for i, m := range msgs {
		req.Messages[i] = openrouter.Message{Role: m.Role, Content: m.Content}
	}
	if opts.Temperature >= 0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		mt := opts.MaxTokens
		req.MaxTokens = &mt
	}

	resp, err := g.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("openrouter: response contains no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// anthropicGenerator adapts the Anthropic client to the Generator interface.
type anthropicGenerator struct {
	client anthropic.Client
	model  string
}

// NewAnthropic wraps an Anthropic client as a gateway provider.
func NewAnthropic(client anthropic.Client, model string) Generator {
	return &anthropicGenerator{client: client, model: model}
}

func (g *anthropicGenerator) Name() string { return "anthropic" }

func (g *anthropicGenerator) Generate(ctx context.Context, msgs []Message, opts Options) (string, error) {
	req := anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: int64(opts.MaxTokens),
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 1024
	}
	if opts.Temperature >= 0 {
		t := opts.Temperature
		req.Temperature = &t
	}

	// Anthropic takes the system prompt as a separate field.
	for _, m := range msgs {
		if m.Role == "system" {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, anthropic.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := g.client.CreateMessage(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// ollamaGenerator adapts the local Ollama client to the Generator interface.
type ollamaGenerator struct {
	client ollama.Client
	model  string
}

// NewOllama wraps an Ollama client as a gateway provider.
func NewOllama(client ollama.Client, model string) Generator {
	return &ollamaGenerator{client: client, model: model}
}

func (g *ollamaGenerator) Name() string { return "ollama" }

func (g *ollamaGenerator) Generate(ctx context.Context, msgs []Message, opts Options) (string, error) {
	req := ollama.ChatRequest{
		Model:    g.model,
		Messages: make([]ollama.Message, len(msgs)),
	}
	for i, m := range msgs {
		req.Messages[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}
	if opts.Temperature >= 0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		mt := opts.MaxTokens
		req.MaxTokens = &mt
	}

	return g.client.Chat(ctx, req)
}
