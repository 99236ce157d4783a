package signals

import (
	"fmt"
	"strings"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// titleTemplates are the candidate framings, strongest first. The generator
// currently always uses the first; the rest are kept for A/B rotation.
var titleTemplates = []string{
	"📊 %s — Here’s What That Means (30s)",
	"⚠️ %s — Quick Breakdown",
	"🔥 %s — Short Summary",
}

// TitleCandidate is one generated title with its thumbnail text.
type TitleCandidate struct {
	Ticker     string `json:"ticker"`
	Title      string `json:"title"`
	ThumbLine1 string `json:"thumb_line1"`
	ThumbLine2 string `json:"thumb_line2"`
}

// ChooseHeadline picks the lead narrative for a ticker. Crossovers beat
// volume spikes beat divergence; sentiment never leads.
func ChooseHeadline(ts model.TickerSignals) string {
	for _, want := range []string{model.SignalMACrossover, model.SignalVolumeSpike, model.SignalDivergence} {
		for _, s := range ts.Signals {
			if s.Type == want {
				return s.Narrative
			}
		}
	}
	return fmt.Sprintf("Market note — %s", ts.Ticker)
}

// BuildTitles generates one title candidate per ticker in the report.
func BuildTitles(report model.SignalReport) []TitleCandidate {
	out := make([]TitleCandidate, 0, len(report.Signals))
	for _, ts := range report.Signals {
		headline := ChooseHeadline(ts)
		line1, _, _ := strings.Cut(headline, " — ")
		out = append(out, TitleCandidate{
			Ticker:     ts.Ticker,
			Title:      fmt.Sprintf(titleTemplates[0], headline),
			ThumbLine1: line1,
			ThumbLine2: fmt.Sprintf("%s • %d signals", ts.Ticker, len(ts.Signals)),
		})
	}
	return out
}
