package model

import "time"

// Signal types produced by the detector.
const (
	SignalMACrossover   = "ma_crossover"
	SignalVolumeSpike   = "volume_spike"
	SignalDivergence    = "divergence"
	SignalSentimentBull = "sentiment_bull"
	SignalSentimentBear = "sentiment_bear"
)

// Signal is a single detected market event with a ready-to-use narrative line.
type Signal struct {
	Type      string  `json:"type"`
	Dir       string  `json:"dir,omitempty"`
	VolRatio  float64 `json:"vol_ratio,omitempty"`
	DiffPct   float64 `json:"diff_pct,omitempty"`
	Narrative string  `json:"narrative"`
}

// Sentiment summarizes social mention counts for a ticker.
type Sentiment struct {
	Bull  int `json:"bull"`
	Bear  int `json:"bear"`
	Total int `json:"total"`
}

// TickerSignals groups the detected signals for one ticker, optionally
// enriched with social sentiment.
type TickerSignals struct {
	Ticker    string     `json:"ticker"`
	Signals   []Signal   `json:"signals"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
}

// SignalReport is the batch detection output across all tickers.
type SignalReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Signals     []TickerSignals `json:"signals"`
}
