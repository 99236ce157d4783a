package story

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/auto-market-pulse/pulse-cli/internal/llm"
)

// keywordCount is the fixed number of visual keywords per story.
const keywordCount = 3

var quotedRE = regexp.MustCompile(`"([^"]+)"`)

// commonTerms are scanned in order when the model output is unusable. The
// ordering is the selection priority.
var commonTerms = []string{
	"money", "inflation", "crisis", "housing", "market",
	"stock", "dollar", "fed", "economy", "price",
}

// KeywordExtractor derives three background-footage search terms from a story
// via a model call, degrading through regex recovery and a term scan. Extract
// never fails.
type KeywordExtractor struct {
	llm   Completer
	lower cases.Caser
}

// NewKeywordExtractor creates an extractor over the given gateway.
func NewKeywordExtractor(gateway Completer) *KeywordExtractor {
	return &KeywordExtractor{
		llm:   gateway,
		lower: cases.Lower(language.Und),
	}
}

// Extract returns exactly three lowercase keywords for the story text.
func (e *KeywordExtractor) Extract(ctx context.Context, storyText string) []string {
	msgs := []llm.Message{
		{Role: "system", Content: keywordPrompt},
		{Role: "user", Content: storyText},
	}
	text, err := e.llm.Complete(ctx, msgs, llm.Options{Temperature: 0.0, MaxTokens: 100})
	if err != nil {
		zap.L().Warn("keywords: extraction call failed, scanning story text", zap.Error(err))
		return e.scanTerms(storyText)
	}

	if kws, ok := e.parseKeywords(text); ok {
		return kws
	}
	return e.scanTerms(storyText)
}

// parseKeywords pulls keywords out of model output: a JSON array first, then
// any quoted strings.
func (e *KeywordExtractor) parseKeywords(text string) ([]string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var arr []string
	if err := json.Unmarshal([]byte(text), &arr); err == nil && len(arr) >= keywordCount {
		return e.normalize(arr), true
	}

	matches := quotedRE.FindAllStringSubmatch(text, -1)
	if len(matches) >= keywordCount {
		quoted := make([]string, 0, len(matches))
		for _, m := range matches {
			quoted = append(quoted, m[1])
		}
		return e.normalize(quoted), true
	}
	return nil, false
}

func (e *KeywordExtractor) normalize(raw []string) []string {
	out := make([]string, 0, keywordCount)
	for _, kw := range raw {
		if len(out) == keywordCount {
			break
		}
		out = append(out, e.lower.String(strings.TrimSpace(kw)))
	}
	return out
}

// scanTerms looks for well-known financial terms in the story text itself and
// pads with "market" so the result always has three entries.
func (e *KeywordExtractor) scanTerms(storyText string) []string {
	lowered := e.lower.String(storyText)
	out := make([]string, 0, keywordCount)
	for _, term := range commonTerms {
		if len(out) == keywordCount {
			break
		}
		if strings.Contains(lowered, term) {
			out = append(out, term)
		}
	}
	for len(out) < keywordCount {
		out = append(out, "market")
	}
	return out
}
