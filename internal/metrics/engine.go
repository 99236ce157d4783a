// Package metrics computes deterministic numeric indicators from cached price
// observations. Its Records are the ground truth the generated narration must
// agree with.
package metrics

import (
	"math"
	"sort"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

const (
	// DefaultWindow is the lookback window (in observations) for percentage
	// change and slope.
	DefaultWindow = 5

	// momentumBars is the longer horizon used for the momentum metric.
	momentumBars = 30

	// volumeBaselineBars is the trailing window for the average-volume
	// baseline, excluding the latest bar.
	volumeBaselineBars = 20
)

// Engine computes per-symbol metric Records from time-ordered observations.
type Engine struct {
	window int
}

// NewEngine creates an engine with the given lookback window. Non-positive
// values fall back to DefaultWindow.
func NewEngine(window int) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{window: window}
}

// BuildRecords computes one Record per requested symbol, skipping symbols
// with no observations. It never fails the whole batch.
func (e *Engine) BuildRecords(obs []model.Observation, symbols []string) []model.Record {
	records := make([]model.Record, 0, len(symbols))
	for _, sym := range symbols {
		if r, ok := e.ComputeRecord(obs, sym); ok {
			records = append(records, r)
		}
	}
	return records
}

// ComputeRecord filters and sorts observations for a symbol and derives its
// metric snapshot. Returns false when the symbol has no observations.
func (e *Engine) ComputeRecord(obs []model.Observation, symbol string) (model.Record, bool) {
	var rows []model.Observation
	for _, o := range obs {
		if o.Symbol == symbol {
			rows = append(rows, o)
		}
	}
	if len(rows) == 0 {
		return model.Record{}, false
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	closes := make([]float64, len(rows))
	volumes := make([]int64, len(rows))
	for i, r := range rows {
		closes[i] = r.Close
		volumes[i] = r.Volume
	}

	recent := closes
	if len(closes) > e.window {
		recent = closes[len(closes)-e.window:]
	}

	pct := pctChange(recent)
	sl := slope(recent)

	mom := 0.0
	if len(closes) >= momentumBars {
		base := closes[len(closes)-momentumBars]
		if base != 0 {
			mom = (closes[len(closes)-1] - base) / base * 100.0
		}
	}

	lastVol := volumes[len(volumes)-1]
	volAvg := baselineVolume(volumes)
	volMult := 1.0
	if volAvg > 0 {
		volMult = float64(lastVol) / volAvg
	}

	return model.Record{
		Symbol:     symbol,
		Close:      closes[len(closes)-1],
		PctChange:  roundTo(pct, 4),
		Slope:      roundTo(sl, 6),
		Momentum30: roundTo(mom, 4),
		Volume:     lastVol,
		VolMult:    roundTo(volMult, 2),
	}, true
}

// pctChange is the percentage move from the first to the last close of the
// series. Zero when fewer than two points or the first close is zero.
func pctChange(closes []float64) float64 {
	if len(closes) < 2 || closes[0] == 0 {
		return 0.0
	}
	return (closes[len(closes)-1] - closes[0]) / closes[0] * 100.0
}

// slope fits a least-squares line over index positions and returns its slope
// in price units per observation. Zero when fewer than two points.
func slope(closes []float64) float64 {
	n := len(closes)
	if n < 2 {
		return 0.0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range closes {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0.0
	}
	return (fn*sumXY - sumX*sumY) / denom
}

// baselineVolume is the mean of up to volumeBaselineBars volumes preceding
// the latest bar. With two or fewer bars the mean of everything is used.
func baselineVolume(volumes []int64) float64 {
	n := len(volumes)
	window := volumes
	if n > 2 {
		start := n - volumeBaselineBars - 1
		if start < 0 {
			start = 0
		}
		window = volumes[start : n-1]
	}
	if len(window) == 0 {
		return 0.0
	}
	var sum int64
	for _, v := range window {
		sum += v
	}
	return float64(sum) / float64(len(window))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
