// Package story implements the generation-validation-refinement engine: it
// turns metric records into a validated narration story through a bounded
// critic-refiner loop, with a deterministic synthesis path as backstop.
package story

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/auto-market-pulse/pulse-cli/internal/llm"
	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// Completer is the slice of the provider gateway the story engine needs.
// *llm.Gateway satisfies it.
type Completer interface {
	Complete(ctx context.Context, msgs []llm.Message, opts llm.Options) (string, error)
}

const writerPrompt = `You are the Writer agent for short-form financial video narration.
Goal: Convert the provided numerical 'records' into a concise, visual, and hook-driven 'market_pulse' story JSON.
Requirements:
- Output strictly valid JSON with keys: type, title, bullets (list of {symbol, text}), records, signals, summary_tweet.
- The bullets are three ordered blocks: Hook, Evidence, Loop. Each is tagged with the symbol it covers.
- Title should be punchy and include a date.
- Each bullet must be highly visual (what to show on screen) and have a clear hook.
- The Evidence block must cite the specific numbers from the records.
Tone: punchy, vivid, and optimized for 9:16 short videos.`

const criticPrompt = `You are the Critic agent. Given a Writer draft (JSON or text), score and provide concise, actionable feedback.
Score on 4 axes (0-10): Hook Velocity, Rhythm, Visualizability, Loop Factor.
Return a JSON object: {"score": <avg 0-10>, "components": {"hook":n,"rhythm":n,"visual":n,"loop":n}, "feedback": "..."}.
Feedback must be actionable: suggest changes to hook, phrasing, or ending to improve Loop Factor.`

const keywordPrompt = `Extract exactly 3 visual keywords from the following financial story text.
These keywords will be used to select background videos (e.g., 'money', 'housing', 'inflation', 'crisis').
Return ONLY a JSON array of exactly 3 lowercase keywords, e.g., ["money", "inflation", "crisis"].
Do not include any other text or explanation.`

// refinePayload is the free-text blob re-sent to the model on later rounds.
// Feedback and prior draft are concatenated, not structurally merged: the
// model sees cumulative context, not a diff.
type refinePayload struct {
	RefineFeedback string `json:"refine_feedback"`
	PreviousDraft  string `json:"previous_draft"`
}

// draftMessages builds the round-one conversation from the metric records.
func draftMessages(records []model.Record) ([]llm.Message, error) {
	payload, err := json.MarshalIndent(map[string]any{"records": records}, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "story: marshal records")
	}
	return []llm.Message{
		{Role: "system", Content: writerPrompt},
		{Role: "user", Content: "Input data:\n" + string(payload) + "\nProduce the story JSON now."},
	}, nil
}

// refineMessages builds a later-round conversation carrying the previous
// draft and accumulated feedback.
func refineMessages(previous string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: writerPrompt},
		{Role: "user", Content: "Refine this draft using previous feedback. Previous draft:\n" + previous},
	}
}

// foldFeedback packs the combined feedback and the prior draft into the blob
// the next round treats as its previous draft.
func foldFeedback(feedback, previous string) string {
	blob, err := json.Marshal(refinePayload{RefineFeedback: feedback, PreviousDraft: previous})
	if err != nil {
		// Marshal of two strings cannot fail; keep the draft if it somehow does.
		return previous
	}
	return string(blob)
}
