package model

import "time"

// Observation is a single OHLCV bar for a symbol, as loaded from the price
// cache. Observations are the raw input to the metric engine.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Record is a computed metric snapshot for a single symbol: the ground truth
// the writer model must narrate faithfully. Records are immutable once
// computed; one is produced per symbol per run.
type Record struct {
	Symbol     string  `json:"symbol"`
	Close      float64 `json:"close"`
	PctChange  float64 `json:"pct_change"`
	Slope      float64 `json:"slope"`
	Momentum30 float64 `json:"momentum_30d"`
	Volume     int64   `json:"volume"`
	VolMult    float64 `json:"vol_mult"`
}
