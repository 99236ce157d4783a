package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/auto-market-pulse/pulse-cli/internal/llm"
	"github.com/auto-market-pulse/pulse-cli/internal/metrics"
	"github.com/auto-market-pulse/pulse-cli/internal/model"
	"github.com/auto-market-pulse/pulse-cli/internal/sentiment"
	"github.com/auto-market-pulse/pulse-cli/internal/signals"
	"github.com/auto-market-pulse/pulse-cli/internal/store"
	"github.com/auto-market-pulse/pulse-cli/internal/story"
	"github.com/auto-market-pulse/pulse-cli/pkg/anthropic"
	"github.com/auto-market-pulse/pulse-cli/pkg/ollama"
	"github.com/auto-market-pulse/pulse-cli/pkg/openrouter"
)

// appEnv bundles the wired subsystems for the commands.
type appEnv struct {
	Store    store.Store
	Engine   *metrics.Engine
	Refiner  *story.Refiner
	Keywords *story.KeywordExtractor
	Detector *signals.Detector
}

func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initEnv opens the store and assembles the story and signal pipelines from
// the loaded configuration.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	gateway := buildGateway()

	rules := story.DefaultRuleset()
	if cfg.Story.RulesPath != "" {
		if rules, err = story.LoadRuleset(cfg.Story.RulesPath); err != nil {
			st.Close()
			return nil, err
		}
	}

	refiner := story.NewRefiner(
		gateway,
		story.NewCritic(gateway),
		story.NewValidator(rules),
		story.NewSynthesizer(),
		story.RefinerConfig{
			MaxRounds:   cfg.Story.MaxRounds,
			AcceptScore: cfg.Story.AcceptScore,
			Temperature: cfg.Story.Temperature,
			MaxTokens:   cfg.Story.MaxTokens,
			Pause:       time.Duration(cfg.Story.RetryPauseMS) * time.Millisecond,
		},
	)

	var sentimentSrc signals.SentimentSource
	if cfg.Sentiment.Enabled {
		sentimentSrc = sentiment.NewClient(
			sentiment.WithBaseURL(cfg.Sentiment.BaseURL),
			sentiment.WithTTL(time.Duration(cfg.Sentiment.TTLSecs)*time.Second),
			sentiment.WithMaxMessages(cfg.Sentiment.MaxMessages),
		)
	}

	return &appEnv{
		Store:    st,
		Engine:   metrics.NewEngine(cfg.Story.WindowDays),
		Refiner:  refiner,
		Keywords: story.NewKeywordExtractor(gateway),
		Detector: signals.NewDetector(signals.Config{
			Benchmark:     cfg.Signals.Benchmark,
			VolSpikeRatio: cfg.Signals.VolSpikeRatio,
			DivergencePct: cfg.Signals.DivergencePct,
			Concurrency:   cfg.Signals.Concurrency,
		}, sentimentSrc),
	}, nil
}

// buildGateway assembles the provider waterfall. Keyed providers join only
// when configured; the local Ollama endpoint is always the last resort.
func buildGateway() *llm.Gateway {
	var providers []llm.Generator
	if key := cfg.LLM.OpenRouter.Key; key != "" {
		client := openrouter.NewClient(key,
			openrouter.WithBaseURL(cfg.LLM.OpenRouter.BaseURL),
		)
		providers = append(providers, llm.NewOpenRouter(client, cfg.LLM.OpenRouter.Model))
	}
	if key := cfg.LLM.Anthropic.Key; key != "" {
		providers = append(providers, llm.NewAnthropic(anthropic.NewClient(key), cfg.LLM.Anthropic.Model))
	}
	providers = append(providers, llm.NewOllama(
		ollama.NewClient(ollama.WithBaseURL(cfg.LLM.Ollama.BaseURL)),
		cfg.LLM.Ollama.Model,
	))

	opts := []llm.GatewayOption{
		llm.WithTimeout(time.Duration(cfg.LLM.TimeoutSecs) * time.Second),
	}
	if cfg.LLM.RatePerSec > 0 {
		opts = append(opts, llm.WithRateLimit(cfg.LLM.RatePerSec))
	}
	return llm.NewGateway(providers, opts...)
}

// loadHistory pulls per-symbol observation histories from the store.
func loadHistory(ctx context.Context, st store.Store, symbols []string, since time.Time) (map[string][]model.Observation, error) {
	history := make(map[string][]model.Observation, len(symbols))
	for _, sym := range symbols {
		obs, err := st.ListObservations(ctx, store.ObservationFilter{Symbol: sym, Since: since})
		if err != nil {
			return nil, eris.Wrapf(err, "load history for %s", sym)
		}
		if len(obs) > 0 {
			history[sym] = obs
		}
	}
	return history, nil
}
