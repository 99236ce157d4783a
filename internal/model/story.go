package model

import "strings"

// StoryType identifies the narrative format. Only market_pulse is produced
// today.
const StoryTypeMarketPulse = "market_pulse"

// Bullet is one narrative block of a story, tagged with the symbol it covers.
// A valid story carries exactly three: Hook, Evidence, Loop, in that order.
type Bullet struct {
	Symbol string `json:"symbol"`
	Text   string `json:"text"`
}

// Story is the structured narrative artifact handed to downstream renderers
// (charting, TTS, subtitles). Once accepted by the refinement loop it is
// immutable; each refinement round builds a fresh Story.
type Story struct {
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Bullets      []Bullet `json:"bullets"`
	Records      []Record `json:"records"`
	Signals      []Signal `json:"signals"`
	SummaryTweet string   `json:"summary_tweet"`
}

// ScriptText concatenates the title and bullet texts into the spoken-script
// form used for keyword extraction and TTS input.
func (s Story) ScriptText() string {
	parts := make([]string, 0, len(s.Bullets)+1)
	if s.Title != "" {
		parts = append(parts, s.Title)
	}
	for _, b := range s.Bullets {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Verdict is the outcome of validating a candidate story. A failed verdict
// carries the first rule violation as a human-readable defect; it is data,
// never an error.
type Verdict struct {
	OK     bool   `json:"ok"`
	Defect string `json:"defect,omitempty"`
}

// Pass returns a passing verdict.
func Pass() Verdict { return Verdict{OK: true} }

// Fail returns a failing verdict with the given defect description.
func Fail(defect string) Verdict { return Verdict{Defect: defect} }

// CriticScore holds the four axis scores (0-10) returned by the critic model,
// their arithmetic mean, and free-text feedback for the next round.
type CriticScore struct {
	Hook     float64 `json:"hook"`
	Rhythm   float64 `json:"rhythm"`
	Visual   float64 `json:"visual"`
	Loop     float64 `json:"loop"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}
