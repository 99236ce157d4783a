package main

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
	"github.com/auto-market-pulse/pulse-cli/internal/signals"
)

var (
	signalsSymbols string
	signalsDays    int
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Detect market signals from cached price history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := detectSignals(cmd, env, signalsSymbols, signalsDays)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "signals: encode output")
	},
}

var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "Generate title and thumbnail candidates from detected signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := detectSignals(cmd, env, signalsSymbols, signalsDays)
		if err != nil {
			return err
		}

		out := struct {
			Candidates []signals.TitleCandidate `json:"candidates"`
		}{Candidates: signals.BuildTitles(report)}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(out), "titles: encode output")
	},
}

// detectSignals resolves the symbol set, loads history, and runs detection.
func detectSignals(cmd *cobra.Command, env *appEnv, symbolsFlag string, days int) (model.SignalReport, error) {
	symbols, err := resolveSymbols(cmd, symbolsFlag, env)
	if err != nil {
		return model.SignalReport{}, err
	}

	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
	}
	history, err := loadHistory(cmd.Context(), env.Store, symbols, since)
	if err != nil {
		return model.SignalReport{}, err
	}
	return env.Detector.DetectAll(cmd.Context(), history)
}

func init() {
	for _, c := range []*cobra.Command{signalsCmd, titlesCmd} {
		c.Flags().StringVar(&signalsSymbols, "symbols", "", "comma-separated tickers (default: all in store)")
		c.Flags().IntVar(&signalsDays, "days", 90, "history window in days")
		rootCmd.AddCommand(c)
	}
}
