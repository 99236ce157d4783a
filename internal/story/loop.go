package story

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/auto-market-pulse/pulse-cli/internal/llm"
	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// defaultFeedback seeds the refinement feedback when the critic offers none.
const defaultFeedback = "Improve hooks, rhythm, visual cues, loop."

// RefinerConfig bounds the critic-refiner loop.
type RefinerConfig struct {
	// MaxRounds is the total number of draft attempts. Default: 3.
	MaxRounds int
	// AcceptScore is the minimum critic mean score for acceptance. Default: 8.0.
	AcceptScore float64
	// Temperature for writer calls. Default: 0.2.
	Temperature float64
	// MaxTokens for writer calls. Default: 2048.
	MaxTokens int
	// Pause between rounds, to avoid hammering the provider. Default: 300ms.
	Pause time.Duration
}

func (c RefinerConfig) withDefaults() RefinerConfig {
	if c.MaxRounds <= 0 {
		c.MaxRounds = 3
	}
	if c.AcceptScore <= 0 {
		c.AcceptScore = 8.0
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.Pause <= 0 {
		c.Pause = 300 * time.Millisecond
	}
	return c
}

// Refiner drives the draft, score, validate loop. Each call to Run owns its
// loop state exclusively; run independent Refiners for parallelism.
type Refiner struct {
	llm       Completer
	critic    *Critic
	validator *Validator
	fallback  *Synthesizer
	cfg       RefinerConfig
}

// NewRefiner assembles the refinement controller.
func NewRefiner(gateway Completer, critic *Critic, validator *Validator, fallback *Synthesizer, cfg RefinerConfig) *Refiner {
	return &Refiner{
		llm:       gateway,
		critic:    critic,
		validator: validator,
		fallback:  fallback,
		cfg:       cfg.withDefaults(),
	}
}

// Run executes the bounded refinement loop and always returns a usable story
// for a non-empty record set. Acceptance requires the critic mean score to
// reach the threshold AND a passing validation verdict. When the round budget
// is spent, the last candidate wins even if it failed validation; if no
// candidate was ever produced, or generation fails outright, the
// deterministic fallback is returned instead.
func (r *Refiner) Run(ctx context.Context, records []model.Record) (model.Story, error) {
	if len(records) == 0 {
		return r.fallback.Synthesize(records)
	}

	opts := llm.Options{Temperature: r.cfg.Temperature, MaxTokens: r.cfg.MaxTokens}

	var draft string
	var last *model.Story

	for round := 1; round <= r.cfg.MaxRounds; round++ {
		// Drafting.
		var text string
		var err error
		if draft == "" {
			var msgs []llm.Message
			msgs, err = draftMessages(records)
			if err == nil {
				text, err = r.llm.Complete(ctx, msgs, opts)
			}
		} else {
			text, err = r.llm.Complete(ctx, refineMessages(draft), opts)
		}
		if err != nil {
			zap.L().Warn("story: generation failed, degrading to deterministic synthesis",
				zap.Int("round", round),
				zap.Error(err),
			)
			return r.fallback.Synthesize(records)
		}
		draft = text

		// Scoring.
		score := r.critic.Review(ctx, draft)

		candidate, ok := model.Story{}, false
		if doc, parsed := ExtractJSON(draft); parsed {
			candidate, ok = storyFromDoc(doc, records)
		}
		if !ok {
			candidate, err = r.fallback.Synthesize(records)
			if err != nil {
				return model.Story{}, err
			}
		}

		verdict := r.validator.Check(candidate)
		last = &candidate

		// Deciding.
		if score.Score >= r.cfg.AcceptScore && verdict.OK {
			zap.L().Info("story: candidate accepted",
				zap.Int("round", round),
				zap.Float64("score", score.Score),
			)
			return candidate, nil
		}

		zap.L().Info("story: candidate rejected, retrying",
			zap.Int("round", round),
			zap.Float64("score", score.Score),
			zap.Bool("validation_ok", verdict.OK),
			zap.String("defect", verdict.Defect),
		)

		feedback := score.Feedback
		if feedback == "" {
			feedback = defaultFeedback
		}
		if !verdict.OK {
			feedback = feedback + " | VALIDATION: " + verdict.Defect
		}
		draft = foldFeedback(feedback, draft)

		if round < r.cfg.MaxRounds {
			select {
			case <-ctx.Done():
			case <-time.After(r.cfg.Pause):
			}
		}
	}

	// Exhausted: best effort over guaranteed correctness.
	if last != nil {
		zap.L().Warn("story: rounds exhausted, returning last candidate")
		return *last, nil
	}
	return r.fallback.Synthesize(records)
}
