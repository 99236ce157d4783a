// Package signals detects tradable patterns in observation history: moving
// average crossovers, volume spikes, benchmark divergence, and social
// sentiment skew. Each detected signal carries a narrative template ready for
// the title generator.
package signals

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// SentimentSource supplies social sentiment counts for a ticker. Lookups are
// best effort; implementations return zero counts rather than errors.
type SentimentSource interface {
	Sentiment(ctx context.Context, ticker string) model.Sentiment
}

// Config tunes the detector thresholds.
type Config struct {
	// Benchmark is the symbol divergence is measured against. Default "SPY".
	Benchmark string
	// VolSpikeRatio is the last-bar to 20-day-average volume ratio that
	// counts as a spike. Default 2.0.
	VolSpikeRatio float64
	// DivergencePct is the absolute 5-bar return gap, in percentage points,
	// that counts as divergence. Default 1.0.
	DivergencePct float64
	// SentimentMinTotal is the message floor below which sentiment is
	// ignored. Default 5.
	SentimentMinTotal int
	// SentimentMinDiff is the bull/bear gap needed for a signal. Default 3.
	SentimentMinDiff int
	// Concurrency caps parallel per-ticker detection. Default 4.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.Benchmark == "" {
		c.Benchmark = "SPY"
	}
	if c.VolSpikeRatio <= 0 {
		c.VolSpikeRatio = 2.0
	}
	if c.DivergencePct <= 0 {
		c.DivergencePct = 1.0
	}
	if c.SentimentMinTotal <= 0 {
		c.SentimentMinTotal = 5
	}
	if c.SentimentMinDiff <= 0 {
		c.SentimentMinDiff = 3
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// Detector runs the signal checks over per-ticker observation history.
type Detector struct {
	cfg       Config
	sentiment SentimentSource
}

// NewDetector creates a detector. sentiment may be nil to skip social checks.
func NewDetector(cfg Config, sentiment SentimentSource) *Detector {
	return &Detector{cfg: cfg.withDefaults(), sentiment: sentiment}
}

// rollingMean returns the trailing mean over at most window values ending at
// index i. Short prefixes average whatever is available.
func rollingMean(vals []float64, window, i int) float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, v := range vals[start : i+1] {
		sum += v
	}
	return sum / float64(i+1-start)
}

// fiveBarReturn is the fractional return over the last five bars, or NaN when
// history is too short.
func fiveBarReturn(closes []float64) float64 {
	n := len(closes)
	if n < 6 {
		return math.NaN()
	}
	base := closes[n-6]
	if base == 0 {
		return math.NaN()
	}
	return (closes[n-1] - base) / base
}

func sortedCopy(obs []model.Observation) []model.Observation {
	out := make([]model.Observation, len(obs))
	copy(out, obs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// DetectTicker runs all checks for one ticker against its observation
// history. benchmark may be nil, which disables the divergence check. Fewer
// than three bars yields no signals.
func (d *Detector) DetectTicker(ctx context.Context, ticker string, obs, benchmark []model.Observation) model.TickerSignals {
	out := model.TickerSignals{Ticker: ticker, Signals: []model.Signal{}}
	if len(obs) < 3 {
		return out
	}
	obs = sortedCopy(obs)

	closes := make([]float64, len(obs))
	volumes := make([]float64, len(obs))
	for i, o := range obs {
		closes[i] = o.Close
		volumes[i] = float64(o.Volume)
	}
	n := len(obs)

	// Moving average crossover on the last two bars.
	ma20Last := rollingMean(closes, 20, n-1)
	ma50Last := rollingMean(closes, 50, n-1)
	ma20Prev := rollingMean(closes, 20, n-2)
	ma50Prev := rollingMean(closes, 50, n-2)
	switch {
	case ma20Last > ma50Last && ma20Prev <= ma50Prev:
		out.Signals = append(out.Signals, model.Signal{
			Type:      model.SignalMACrossover,
			Dir:       "bullish",
			Narrative: fmt.Sprintf("Signal Alert — %s Momentum Flip!", ticker),
		})
	case ma20Last < ma50Last && ma20Prev >= ma50Prev:
		out.Signals = append(out.Signals, model.Signal{
			Type:      model.SignalMACrossover,
			Dir:       "bearish",
			Narrative: fmt.Sprintf("Signal Alert — %s Momentum Flip (bearish)!", ticker),
		})
	}

	// Volume spike: last bar against the trailing 20-bar average.
	vol20 := rollingMean(volumes, 20, n-1)
	volRatio := volumes[n-1] / math.Max(1, vol20)
	if volRatio >= d.cfg.VolSpikeRatio {
		out.Signals = append(out.Signals, model.Signal{
			Type:      model.SignalVolumeSpike,
			VolRatio:  math.Round(volRatio*100) / 100,
			Narrative: fmt.Sprintf("Volume spike — %s volume is %.1fx its 20-day average.", ticker, volRatio),
		})
	}

	// Weekly divergence against the benchmark.
	if benchmark != nil {
		rtn := fiveBarReturn(closes)
		benchCloses := make([]float64, len(benchmark))
		for i, o := range sortedCopy(benchmark) {
			benchCloses[i] = o.Close
		}
		benchRtn := fiveBarReturn(benchCloses)
		if len(benchCloses) < 5 {
			// A benchmark too short to even attempt a weekly return counts
			// as flat. With five or more bars the return stays NaN until a
			// sixth exists, and the diff guard below skips the check.
			benchRtn = 0
		}
		if diff := (rtn - benchRtn) * 100; !math.IsNaN(diff) && math.Abs(diff) >= d.cfg.DivergencePct {
			out.Signals = append(out.Signals, model.Signal{
				Type:      model.SignalDivergence,
				DiffPct:   math.Round(diff*100) / 100,
				Narrative: fmt.Sprintf("%s has diverged from SPY by %.2f%% this week.", ticker, diff),
			})
		}
	}

	// Social sentiment skew.
	if d.sentiment != nil {
		sent := d.sentiment.Sentiment(ctx, ticker)
		out.Sentiment = &sent
		if sent.Total >= d.cfg.SentimentMinTotal {
			switch {
			case sent.Bull-sent.Bear >= d.cfg.SentimentMinDiff:
				out.Signals = append(out.Signals, model.Signal{
					Type:      model.SignalSentimentBull,
					Narrative: fmt.Sprintf("Social buzz on %s is unusually high (Bullish mentions > Bearish).", ticker),
				})
			case sent.Bear-sent.Bull >= d.cfg.SentimentMinDiff:
				out.Signals = append(out.Signals, model.Signal{
					Type:      model.SignalSentimentBear,
					Narrative: fmt.Sprintf("Social buzz on %s is leaning bearish.", ticker),
				})
			}
		}
	}

	return out
}

// DetectAll fans detection out over every ticker in the history map and
// returns the tickers that produced at least one signal, sorted by ticker.
func (d *Detector) DetectAll(ctx context.Context, history map[string][]model.Observation) (model.SignalReport, error) {
	benchmark := history[d.cfg.Benchmark]

	tickers := make([]string, 0, len(history))
	for t := range history {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	results := make([]model.TickerSignals, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for i, t := range tickers {
		g.Go(func() error {
			results[i] = d.DetectTicker(gctx, t, history[t], benchmark)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return model.SignalReport{}, err
	}

	report := model.SignalReport{
		GeneratedAt: time.Now(),
		Signals:     []model.TickerSignals{},
	}
	for _, r := range results {
		if len(r.Signals) > 0 {
			report.Signals = append(report.Signals, r)
		}
	}
	zap.L().Info("signals: detection complete",
		zap.Int("tickers", len(tickers)),
		zap.Int("with_signals", len(report.Signals)),
	)
	return report, nil
}
