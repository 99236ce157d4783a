// Package llm provides the provider gateway: a uniform, fallback-ordered
// interface over the configured text-generation backends.
package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Message is one turn of a generation conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single generation request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Generator produces text from a conversation. Implementations are stateless;
// every call is a fresh request.
type Generator interface {
	Name() string
	Generate(ctx context.Context, msgs []Message, opts Options) (string, error)
}

// Failure records one provider attempt that failed.
type Failure struct {
	Provider string
	Err      error
}

// ProviderError reports that every configured provider failed. The per
// provider failure chain is kept for diagnostics.
type ProviderError struct {
	Failures []Failure
}

func (e *ProviderError) Error() string {
	if len(e.Failures) == 0 {
		return "llm: no providers configured"
	}
	var b strings.Builder
	b.WriteString("llm: all providers failed:")
	for _, f := range e.Failures {
		b.WriteString(" [")
		b.WriteString(f.Provider)
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap exposes the underlying failures to errors.Is/As.
func (e *ProviderError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Gateway tries providers in a fixed priority order; the first provider that
// returns a usable response wins. A failed attempt is not retried against the
// same provider.
type Gateway struct {
	providers []Generator
	timeout   time.Duration
	limiter   *rate.Limiter
}

// GatewayOption configures the gateway.
type GatewayOption func(*Gateway)

// WithTimeout sets the per-provider call timeout. Default: 60s.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithRateLimit throttles outgoing calls to n requests per second.
func WithRateLimit(n float64) GatewayOption {
	return func(g *Gateway) {
		g.limiter = rate.NewLimiter(rate.Limit(n), 1)
	}
}

// NewGateway creates a gateway over the given providers, tried in order.
func NewGateway(providers []Generator, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		providers: providers,
		timeout:   60 * time.Second,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Complete sends the conversation to each provider in turn and returns the
// first non-empty response. A timeout counts the same as any other provider
// failure. If every provider fails, the returned error is a *ProviderError.
func (g *Gateway) Complete(ctx context.Context, msgs []Message, opts Options) (string, error) {
	perr := &ProviderError{}
	for _, p := range g.providers {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		text, err := p.Generate(callCtx, msgs, opts)
		cancel()

		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptyResponse
		}
		if err != nil {
			zap.L().Warn("llm: provider failed, advancing",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			perr.Failures = append(perr.Failures, Failure{Provider: p.Name(), Err: err})
			continue
		}

		zap.L().Debug("llm: provider succeeded",
			zap.String("provider", p.Name()),
			zap.Int("response_chars", len(text)),
		)
		return text, nil
	}
	return "", perr
}

type emptyResponseError struct{}

func (emptyResponseError) Error() string { return "empty response" }

var errEmptyResponse = emptyResponseError{}
