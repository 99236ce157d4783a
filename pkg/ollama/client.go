// Package ollama is a client for a local Ollama server, the last-resort
// text-generation backend when hosted providers are unavailable.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3"
)

// Client generates text against a local Ollama server.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

type generateRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Stream      bool     `json:"stream"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default server URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates an Ollama client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat tries the /api/chat endpoint first and falls back to /api/generate
// with the conversation flattened into a single prompt.
func (c *httpClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	text, chatErr := c.chat(ctx, req)
	if chatErr == nil {
		return text, nil
	}

	text, genErr := c.generate(ctx, req)
	if genErr != nil {
		return "", eris.Wrapf(genErr, "ollama: chat failed (%v), generate fallback failed", chatErr)
	}
	return text, nil
}

func (c *httpClient) chat(ctx context.Context, req ChatRequest) (string, error) {
	var resp chatResponse
	if err := c.post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	if resp.Message.Content == "" {
		return "", eris.New("ollama: empty chat response")
	}
	return resp.Message.Content, nil
}

func (c *httpClient) generate(ctx context.Context, req ChatRequest) (string, error) {
	var parts []string
	for _, m := range req.Messages {
		if m.Role == "system" || m.Role == "user" {
			parts = append(parts, m.Content)
		}
	}

	var resp generateResponse
	genReq := generateRequest{
		Model:       req.Model,
		Prompt:      strings.Join(parts, "\n"),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if err := c.post(ctx, "/api/generate", genReq, &resp); err != nil {
		return "", err
	}
	if resp.Response == "" {
		return "", eris.New("ollama: empty generate response")
	}
	return resp.Response, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "ollama: marshal %s request", path)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrapf(err, "ollama: create %s request", path)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return eris.Wrapf(err, "ollama: send %s request", path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "ollama: read %s response", path)
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("ollama: %s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrapf(err, "ollama: unmarshal %s response", path)
	}
	return nil
}
