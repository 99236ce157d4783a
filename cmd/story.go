package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

var (
	storySymbols string
	storyDays    int
	storySave    bool
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Generate a validated market pulse narration script",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		symbols, err := resolveSymbols(cmd, storySymbols, env)
		if err != nil {
			return err
		}

		var since time.Time
		if storyDays > 0 {
			since = time.Now().AddDate(0, 0, -storyDays)
		}
		history, err := loadHistory(ctx, env.Store, symbols, since)
		if err != nil {
			return err
		}

		var obs []model.Observation
		for _, h := range history {
			obs = append(obs, h...)
		}
		records := env.Engine.BuildRecords(obs, symbols)
		if len(records) == 0 {
			return eris.New("story: no price history for the requested symbols")
		}

		s, err := env.Refiner.Run(ctx, records)
		if err != nil {
			return err
		}

		keywords := env.Keywords.Extract(ctx, s.ScriptText())

		out := struct {
			Story    model.Story `json:"story"`
			Keywords []string    `json:"keywords"`
			RunID    string      `json:"run_id,omitempty"`
		}{Story: s, Keywords: keywords}

		if storySave {
			run, err := env.Store.SaveRun(ctx, s, keywords)
			if err != nil {
				return err
			}
			out.RunID = run.ID
			zap.L().Info("story run saved", zap.String("run_id", run.ID))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(out), "story: encode output")
	},
}

// resolveSymbols parses the --symbols flag, falling back to every symbol in
// the store.
func resolveSymbols(cmd *cobra.Command, flag string, env *appEnv) ([]string, error) {
	if flag != "" {
		var symbols []string
		for _, s := range strings.Split(flag, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		return symbols, nil
	}

	symbols, err := env.Store.Symbols(cmd.Context())
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, eris.New("no symbols in store; run import first")
	}
	return symbols, nil
}

func init() {
	storyCmd.Flags().StringVar(&storySymbols, "symbols", "", "comma-separated tickers (default: all in store)")
	storyCmd.Flags().IntVar(&storyDays, "days", 0, "limit history to the last N days")
	storyCmd.Flags().BoolVar(&storySave, "save", true, "persist the run to the store")
	rootCmd.AddCommand(storyCmd)
}
