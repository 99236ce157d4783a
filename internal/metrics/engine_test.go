package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

func bars(symbol string, closes []float64, volumes []int64) []model.Observation {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]model.Observation, len(closes))
	for i := range closes {
		vol := int64(1000)
		if volumes != nil {
			vol = volumes[i]
		}
		obs[i] = model.Observation{
			Timestamp: base.AddDate(0, 0, i),
			Symbol:    symbol,
			Close:     closes[i],
			Volume:    vol,
		}
	}
	return obs
}

func TestComputeRecord_NoObservations(t *testing.T) {
	e := NewEngine(5)
	_, ok := e.ComputeRecord(nil, "SPY")
	assert.False(t, ok)

	_, ok = e.ComputeRecord(bars("QQQ", []float64{100}, nil), "SPY")
	assert.False(t, ok)
}

func TestComputeRecord_SingleObservation(t *testing.T) {
	e := NewEngine(5)
	r, ok := e.ComputeRecord(bars("SPY", []float64{450.0}, []int64{5000}), "SPY")
	require.True(t, ok)

	assert.Equal(t, 450.0, r.Close)
	assert.Equal(t, 0.0, r.PctChange)
	assert.Equal(t, 0.0, r.Slope)
	assert.Equal(t, 0.0, r.Momentum30)
	// Baseline is the mean of all volumes, so the multiplier is exactly 1.
	assert.Equal(t, 1.0, r.VolMult)
}

func TestComputeRecord_PctChangeAndSlope(t *testing.T) {
	e := NewEngine(5)
	// Perfectly linear closes: slope 1.0 per bar, change (104-100)/100.
	r, ok := e.ComputeRecord(bars("SPY", []float64{100, 101, 102, 103, 104}, nil), "SPY")
	require.True(t, ok)

	assert.Equal(t, 4.0, r.PctChange)
	assert.Equal(t, 1.0, r.Slope)
}

func TestComputeRecord_WindowLimitsLookback(t *testing.T) {
	e := NewEngine(3)
	// Only the last 3 closes count: (110-90)/90*100.
	r, ok := e.ComputeRecord(bars("SPY", []float64{200, 50, 90, 100, 110}, nil), "SPY")
	require.True(t, ok)

	assert.InDelta(t, 22.2222, r.PctChange, 1e-4)
	assert.Equal(t, 10.0, r.Slope)
}

func TestComputeRecord_Momentum(t *testing.T) {
	e := NewEngine(5)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	closes[0] = 80  // 30 bars back
	closes[29] = 88 // latest
	r, ok := e.ComputeRecord(bars("SPY", closes, nil), "SPY")
	require.True(t, ok)
	assert.Equal(t, 10.0, r.Momentum30)

	// With 29 bars, momentum is defined as zero.
	r, ok = e.ComputeRecord(bars("SPY", closes[:29], nil), "SPY")
	require.True(t, ok)
	assert.Equal(t, 0.0, r.Momentum30)
}

func TestComputeRecord_VolumeMultiplier(t *testing.T) {
	e := NewEngine(5)

	volumes := []int64{1000, 1000, 1000, 1000, 3000}
	closes := []float64{100, 100, 100, 100, 100}
	r, ok := e.ComputeRecord(bars("SPY", closes, volumes), "SPY")
	require.True(t, ok)
	// Baseline excludes the latest bar: mean of four 1000s.
	assert.Equal(t, 3.0, r.VolMult)
	assert.Equal(t, int64(3000), r.Volume)
}

func TestComputeRecord_ZeroBaselineVolumeDefaultsToOne(t *testing.T) {
	e := NewEngine(5)
	volumes := []int64{0, 0, 0, 0, 500}
	closes := []float64{100, 100, 100, 100, 100}
	r, ok := e.ComputeRecord(bars("SPY", closes, volumes), "SPY")
	require.True(t, ok)
	assert.Equal(t, 1.0, r.VolMult)
}

func TestComputeRecord_Deterministic(t *testing.T) {
	e := NewEngine(5)
	obs := bars("SPY", []float64{430.1, 433.7, 429.9, 441.2, 450.0}, []int64{900, 1100, 1000, 1200, 1300})

	first, ok := e.ComputeRecord(obs, "SPY")
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := e.ComputeRecord(obs, "SPY")
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestBuildRecords_SkipsMissingSymbols(t *testing.T) {
	e := NewEngine(5)
	obs := append(bars("SPY", []float64{100, 102}, nil), bars("QQQ", []float64{300, 297}, nil)...)

	records := e.BuildRecords(obs, []string{"SPY", "TSLA", "QQQ"})
	require.Len(t, records, 2)
	assert.Equal(t, "SPY", records[0].Symbol)
	assert.Equal(t, "QQQ", records[1].Symbol)
	assert.Equal(t, 2.0, records[0].PctChange)
	assert.Equal(t, -1.0, records[1].PctChange)
}

func TestNewEngine_DefaultWindow(t *testing.T) {
	e := NewEngine(0)
	assert.Equal(t, DefaultWindow, e.window)
}
