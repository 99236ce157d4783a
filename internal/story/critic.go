package story

import (
	"context"
	"encoding/json"
	"regexp"

	"go.uber.org/zap"

	"github.com/auto-market-pulse/pulse-cli/internal/llm"
	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// numberRE finds decimal-like numbers for the heuristic score recovery.
var numberRE = regexp.MustCompile(`[0-9](?:\.[0-9])?`)

// Critic scores a draft along four fixed axes via a second model invocation.
// It always returns something usable: parse failures degrade to a numeric
// scan of the response, and a gateway failure degrades to a zero score.
type Critic struct {
	llm       Completer
	maxTokens int
}

// NewCritic creates a critic over the given gateway.
func NewCritic(gateway Completer) *Critic {
	return &Critic{llm: gateway, maxTokens: 200}
}

// Review scores the raw draft text. Never returns an error.
func (c *Critic) Review(ctx context.Context, draft string) model.CriticScore {
	msgs := []llm.Message{
		{Role: "system", Content: criticPrompt},
		{Role: "user", Content: "Draft:\n" + draft + "\nRespond with the scoring JSON."},
	}
	text, err := c.llm.Complete(ctx, msgs, llm.Options{Temperature: 0.0, MaxTokens: c.maxTokens})
	if err != nil {
		zap.L().Warn("critic: scoring call failed", zap.Error(err))
		return model.CriticScore{}
	}
	return parseCriticResponse(text)
}

// parseCriticResponse interprets the critic model's output. Structured JSON
// wins; otherwise the first four decimal-like numbers become the component
// scores in fixed order. Fewer than four numbers means score zero with the
// raw text as feedback.
func parseCriticResponse(text string) model.CriticScore {
	var parsed struct {
		Score      float64            `json:"score"`
		Components map[string]float64 `json:"components"`
		Feedback   string             `json:"feedback"`
	}
	if doc, ok := ExtractJSON(text); ok {
		raw, _ := json.Marshal(doc)
		if err := json.Unmarshal(raw, &parsed); err == nil {
			if _, has := doc["score"]; has {
				return model.CriticScore{
					Hook:     parsed.Components["hook"],
					Rhythm:   parsed.Components["rhythm"],
					Visual:   parsed.Components["visual"],
					Loop:     parsed.Components["loop"],
					Score:    parsed.Score,
					Feedback: parsed.Feedback,
				}
			}
		}
	}

	nums := numberRE.FindAllString(text, 4)
	if len(nums) < 4 {
		return model.CriticScore{Feedback: text}
	}

	vals := make([]float64, 4)
	var sum float64
	for i, n := range nums {
		var v float64
		if err := json.Unmarshal([]byte(n), &v); err != nil {
			return model.CriticScore{Feedback: text}
		}
		vals[i] = v
		sum += v
	}
	return model.CriticScore{
		Hook:     vals[0],
		Rhythm:   vals[1],
		Visual:   vals[2],
		Loop:     vals[3],
		Score:    sum / 4.0,
		Feedback: text,
	}
}
