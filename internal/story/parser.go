package story

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

var braceRE = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON pulls a JSON object out of free-form model output. It tries a
// direct parse first, then the first top-level brace-delimited substring.
// A false return means "use the deterministic fallback", never an error.
func ExtractJSON(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)

	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err == nil {
		return doc, true
	}

	sub := braceRE.FindString(text)
	if sub == "" {
		return nil, false
	}
	if err := json.Unmarshal([]byte(sub), &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// storyFromDoc converts a parsed document into a typed Story, attaching the
// originating records. Returns false when the document has no bullets, in
// which case the caller should synthesize a fallback story instead.
func storyFromDoc(doc map[string]any, records []model.Record) (model.Story, bool) {
	rawBullets, ok := doc["bullets"].([]any)
	if !ok || len(rawBullets) == 0 {
		return model.Story{}, false
	}

	s := model.Story{
		Type:    model.StoryTypeMarketPulse,
		Records: records,
		Signals: []model.Signal{},
	}
	if t, ok := doc["type"].(string); ok && t != "" {
		s.Type = t
	}
	if title, ok := doc["title"].(string); ok {
		s.Title = title
	}
	if summary, ok := doc["summary_tweet"].(string); ok {
		s.SummaryTweet = summary
	}

	for _, rb := range rawBullets {
		m, ok := rb.(map[string]any)
		if !ok {
			continue
		}
		b := model.Bullet{}
		if sym, ok := m["symbol"].(string); ok {
			b.Symbol = sym
		}
		if text, ok := m["text"].(string); ok {
			b.Text = text
		}
		s.Bullets = append(s.Bullets, b)
	}
	if len(s.Bullets) == 0 {
		return model.Story{}, false
	}
	return s, true
}
