package signals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// series builds an observation history from closes and volumes, timestamped
// one day apart.
func series(symbol string, closes []float64, volumes []int64) []model.Observation {
	base := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	obs := make([]model.Observation, len(closes))
	for i := range closes {
		vol := int64(1_000_000)
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

// flat returns n copies of v.
func flat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func findSignal(ts model.TickerSignals, typ string) *model.Signal {
	for i := range ts.Signals {
		if ts.Signals[i].Type == typ {
			return &ts.Signals[i]
		}
	}
	return nil
}

func TestDetectTickerTooShort(t *testing.T) {
	d := NewDetector(Config{}, nil)
	out := d.DetectTicker(context.Background(), "SPY", series("SPY", flat(100, 2), nil), nil)
	assert.Empty(t, out.Signals)
}

func TestDetectBullishCrossover(t *testing.T) {
	d := NewDetector(Config{}, nil)

	// Flat history keeps both averages pinned at 100 through the
	// next-to-last bar; a single strong close lifts ma20 over ma50 on the
	// final bar only.
	closes := flat(100, 55)
	closes[54] = 110
	out := d.DetectTicker(context.Background(), "QQQ", series("QQQ", closes, nil), nil)

	sig := findSignal(out, model.SignalMACrossover)
	require.NotNil(t, sig)
	assert.Equal(t, "bullish", sig.Dir)
	assert.Equal(t, "Signal Alert — QQQ Momentum Flip!", sig.Narrative)
}

func TestDetectBearishCrossover(t *testing.T) {
	d := NewDetector(Config{}, nil)

	closes := flat(100, 55)
	closes[54] = 90
	out := d.DetectTicker(context.Background(), "IWM", series("IWM", closes, nil), nil)

	sig := findSignal(out, model.SignalMACrossover)
	require.NotNil(t, sig)
	assert.Equal(t, "bearish", sig.Dir)
	assert.Equal(t, "Signal Alert — IWM Momentum Flip (bearish)!", sig.Narrative)
}

func TestDetectNoCrossoverOnFlatSeries(t *testing.T) {
	d := NewDetector(Config{}, nil)
	out := d.DetectTicker(context.Background(), "SPY", series("SPY", flat(100, 60), nil), nil)
	assert.Nil(t, findSignal(out, model.SignalMACrossover))
}

func TestDetectVolumeSpike(t *testing.T) {
	d := NewDetector(Config{}, nil)

	volumes := make([]int64, 25)
	for i := range volumes {
		volumes[i] = 1_000_000
	}
	volumes[24] = 3_000_000

	out := d.DetectTicker(context.Background(), "TSLA", series("TSLA", flat(200, 25), volumes), nil)

	sig := findSignal(out, model.SignalVolumeSpike)
	require.NotNil(t, sig)
	// 3.0M against a 20-bar mean of 1.1M.
	assert.InDelta(t, 2.73, sig.VolRatio, 0.01)
	assert.Contains(t, sig.Narrative, "TSLA volume is 2.7x its 20-day average.")
}

func TestDetectVolumeBelowThreshold(t *testing.T) {
	d := NewDetector(Config{}, nil)

	volumes := make([]int64, 25)
	for i := range volumes {
		volumes[i] = 1_000_000
	}
	volumes[24] = 1_500_000

	out := d.DetectTicker(context.Background(), "TSLA", series("TSLA", flat(200, 25), volumes), nil)
	assert.Nil(t, findSignal(out, model.SignalVolumeSpike))
}

func TestDetectDivergence(t *testing.T) {
	d := NewDetector(Config{}, nil)

	// Ticker up 5% over the last five bars, benchmark flat.
	closes := flat(100, 10)
	closes[9] = 105
	bench := series("SPY", flat(100, 10), nil)

	out := d.DetectTicker(context.Background(), "NVDA", series("NVDA", closes, nil), bench)

	sig := findSignal(out, model.SignalDivergence)
	require.NotNil(t, sig)
	assert.InDelta(t, 5.0, sig.DiffPct, 0.001)
	assert.Equal(t, "NVDA has diverged from SPY by 5.00% this week.", sig.Narrative)
}

func TestDetectDivergenceNeedsBenchmark(t *testing.T) {
	d := NewDetector(Config{}, nil)

	closes := flat(100, 10)
	closes[9] = 105
	out := d.DetectTicker(context.Background(), "NVDA", series("NVDA", closes, nil), nil)
	assert.Nil(t, findSignal(out, model.SignalDivergence))
}

func TestDetectDivergenceShortBenchmarkCountsAsFlat(t *testing.T) {
	d := NewDetector(Config{}, nil)

	closes := flat(100, 10)
	closes[9] = 102
	// Too few benchmark bars for a 5-bar return; treated as zero.
	bench := series("SPY", flat(100, 3), nil)

	out := d.DetectTicker(context.Background(), "NVDA", series("NVDA", closes, nil), bench)
	sig := findSignal(out, model.SignalDivergence)
	require.NotNil(t, sig)
	assert.InDelta(t, 2.0, sig.DiffPct, 0.001)
}

func TestDetectDivergenceUndefinedBenchmarkReturnSuppressed(t *testing.T) {
	d := NewDetector(Config{}, nil)

	closes := flat(100, 10)
	closes[9] = 105
	// Five benchmark bars is enough to attempt the weekly return but one
	// short of computing it; the undefined return suppresses the signal
	// instead of being treated as flat.
	bench := series("SPY", flat(100, 5), nil)

	out := d.DetectTicker(context.Background(), "NVDA", series("NVDA", closes, nil), bench)
	assert.Nil(t, findSignal(out, model.SignalDivergence))
}

type stubSentiment struct {
	counts map[string]model.Sentiment
}

func (s *stubSentiment) Sentiment(_ context.Context, ticker string) model.Sentiment {
	return s.counts[ticker]
}

func TestDetectSentimentSignals(t *testing.T) {
	src := &stubSentiment{counts: map[string]model.Sentiment{
		"AAPL": {Bull: 8, Bear: 2, Total: 10},
		"MSFT": {Bull: 1, Bear: 7, Total: 8},
		"GOOG": {Bull: 3, Bear: 1, Total: 4},
	}}
	d := NewDetector(Config{}, src)

	out := d.DetectTicker(context.Background(), "AAPL", series("AAPL", flat(100, 5), nil), nil)
	sig := findSignal(out, model.SignalSentimentBull)
	require.NotNil(t, sig)
	assert.Equal(t, "Social buzz on AAPL is unusually high (Bullish mentions > Bearish).", sig.Narrative)
	require.NotNil(t, out.Sentiment)
	assert.Equal(t, 10, out.Sentiment.Total)

	out = d.DetectTicker(context.Background(), "MSFT", series("MSFT", flat(100, 5), nil), nil)
	sig = findSignal(out, model.SignalSentimentBear)
	require.NotNil(t, sig)
	assert.Equal(t, "Social buzz on MSFT is leaning bearish.", sig.Narrative)

	// Below the message floor: no signal either way.
	out = d.DetectTicker(context.Background(), "GOOG", series("GOOG", flat(100, 5), nil), nil)
	assert.Nil(t, findSignal(out, model.SignalSentimentBull))
	assert.Nil(t, findSignal(out, model.SignalSentimentBear))
}

func TestDetectAll(t *testing.T) {
	d := NewDetector(Config{}, nil)

	quiet := flat(100, 10)
	diverging := flat(100, 10)
	diverging[9] = 105

	report, err := d.DetectAll(context.Background(), map[string][]model.Observation{
		"SPY":  series("SPY", quiet, nil),
		"NVDA": series("NVDA", diverging, nil),
		"DIA":  series("DIA", quiet, nil),
	})
	require.NoError(t, err)

	// Only NVDA produced a signal; quiet tickers are dropped.
	require.Len(t, report.Signals, 1)
	assert.Equal(t, "NVDA", report.Signals[0].Ticker)
	assert.False(t, report.GeneratedAt.IsZero())
}
