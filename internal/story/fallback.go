package story

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// volumeAnomalyMult is the volume multiplier above which the fallback
// narration gains an unusual-volume clause.
const volumeAnomalyMult = 1.5

// Synthesizer builds a guaranteed-valid story straight from metric records
// with no model call. It is the subsystem's availability backstop.
type Synthesizer struct {
	now func() time.Time
}

// NewSynthesizer creates a synthesizer using the wall clock.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{now: time.Now}
}

// WithNow sets a fixed time for testing.
func (s *Synthesizer) WithNow(t time.Time) *Synthesizer {
	s.now = func() time.Time { return t }
	return s
}

// Synthesize produces one bullet per record from a fixed template. It fails
// only when records is empty: the single hard-error path of the engine.
func (s *Synthesizer) Synthesize(records []model.Record) (model.Story, error) {
	if len(records) == 0 {
		return model.Story{}, eris.New("story: no records to synthesize")
	}

	bullets := make([]model.Bullet, 0, len(records))
	for _, r := range records {
		text := fmt.Sprintf("%s closed %+.2f%% at $%.2f", r.Symbol, r.PctChange, r.Close)
		if r.VolMult > volumeAnomalyMult {
			text += fmt.Sprintf(" — unusual volume: %.1fx avg", r.VolMult)
		}
		bullets = append(bullets, model.Bullet{Symbol: r.Symbol, Text: text})
	}

	summaryParts := make([]string, 0, 4)
	for _, r := range records {
		if len(summaryParts) == 4 {
			break
		}
		summaryParts = append(summaryParts, fmt.Sprintf("%s %+.2f%%", r.Symbol, r.PctChange))
	}

	return model.Story{
		Type:         model.StoryTypeMarketPulse,
		Title:        "Market Pulse — " + s.now().Format("Jan 02, 2006"),
		Bullets:      bullets,
		Records:      records,
		Signals:      []model.Signal{},
		SummaryTweet: strings.Join(summaryParts, " | ") + " — snapshot",
	}, nil
}
