package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auto-market-pulse/pulse-cli/internal/store"
)

var importPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import price history CSVs into the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		paths, err := csvPaths(importPath)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.Errorf("import: no csv files at %s", importPath)
		}

		var total int
		for _, p := range paths {
			obs, err := store.ReadObservationsCSV(p)
			if err != nil {
				return err
			}
			n, err := env.Store.ImportObservations(ctx, obs)
			if err != nil {
				return err
			}
			total += n
			zap.L().Info("imported price file",
				zap.String("path", p),
				zap.Int("bars", n),
			)
		}

		cmd.Printf("Imported %d bars from %d file(s)\n", total, len(paths))
		return nil
	},
}

// csvPaths expands a file or directory argument into csv file paths.
func csvPaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: stat %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: read dir %s", path)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			paths = append(paths, filepath.Join(path, e.Name()))
		}
	}
	return paths, nil
}

func init() {
	importCmd.Flags().StringVar(&importPath, "csv", "", "csv file or directory of csv files (required)")
	importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
