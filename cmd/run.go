package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborline/manifest-cli/internal/batch"
	"github.com/harborline/manifest-cli/internal/fetcher"
	"github.com/harborline/manifest-cli/internal/model"
)

var (
	runInput       string
	runOutput      string
	runPartyCols   []string
	runAddressCols []string
	runSheet       int
	runSheetName   string
	runOffline     bool
	runNoCache     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Standardize party and address columns of a manifest file",
	Long:  "Loads a manifest from a local path or URL (CSV or XLSX), standardizes the configured columns, and writes the result as CSV with the refined columns appended.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, runOffline, runNoCache)
		if err != nil {
			return err
		}
		defer e.Close()

		partyCols := runPartyCols
		if len(partyCols) == 0 {
			partyCols = cfg.Run.PartyColumns
		}
		addressCols := runAddressCols
		if len(addressCols) == 0 {
			addressCols = cfg.Run.AddressColumns
		}

		start := time.Now()
		m, err := fetcher.LoadManifest(ctx, runInput, fetcher.LoadOptions{
			SheetIndex: runSheet,
			SheetName:  runSheetName,
		})
		if err != nil {
			return eris.Wrap(err, "load manifest")
		}
		zap.L().Info("manifest loaded",
			zap.String("source", runInput),
			zap.Int("rows", len(m.Rows)),
			zap.Int("columns", len(m.Header)),
		)

		stats, err := processManifest(ctx, m, e.Adapter, partyCols, addressCols)
		if err != nil {
			return err
		}

		if err := m.WriteCSVFile(runOutput); err != nil {
			return eris.Wrap(err, "write output")
		}

		report := model.RunReport{
			Source:   runInput,
			Output:   runOutput,
			Rows:     len(m.Rows),
			Columns:  stats,
			Duration: time.Since(start),
		}
		zap.L().Info("run complete",
			zap.String("output", report.Output),
			zap.Int("rows", report.Rows),
			zap.Duration("duration", report.Duration),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

// processManifest standardizes each configured column in place. Party
// columns gain a "Refined <col>" sibling, address columns a "<col> City"
// sibling. Columns missing from the manifest are skipped with a warning.
func processManifest(ctx context.Context, m *fetcher.Manifest, a *batch.Adapter, partyCols, addressCols []string) ([]model.ColumnStats, error) {
	var stats []model.ColumnStats

	for _, col := range partyCols {
		recs, cs, err := processColumn(ctx, m, col, a, a.StandardizeNames)
		if err != nil {
			return nil, err
		}
		if recs == nil {
			continue
		}
		if err := m.AddColumn("Refined "+col, outputs(recs)); err != nil {
			return nil, err
		}
		stats = append(stats, cs)
	}

	for _, col := range addressCols {
		recs, cs, err := processColumn(ctx, m, col, a, a.ExtractCities)
		if err != nil {
			return nil, err
		}
		if recs == nil {
			continue
		}
		if err := m.AddColumn(col+" City", outputs(recs)); err != nil {
			return nil, err
		}
		stats = append(stats, cs)
	}

	return stats, nil
}

type columnFunc func(ctx context.Context, raws []string) ([]model.StandardizedRecord, error)

func processColumn(ctx context.Context, m *fetcher.Manifest, col string, a *batch.Adapter, fn columnFunc) ([]model.StandardizedRecord, model.ColumnStats, error) {
	values, err := m.Column(col)
	if err != nil {
		zap.L().Warn("column not in manifest, skipping", zap.String("column", col))
		return nil, model.ColumnStats{}, nil
	}

	recs, err := fn(ctx, values)
	if err != nil {
		return nil, model.ColumnStats{}, eris.Wrapf(err, "standardize column %q", col)
	}

	// Stats belong to the adapter call that just finished.
	cs := a.Stats()
	cs.Column = col
	zap.L().Info("column standardized",
		zap.String("column", col),
		zap.Int("rows", cs.Rows),
		zap.Int("uniques", cs.Uniques),
		zap.Int("cache_hits", cs.CacheHits),
	)
	return recs, cs, nil
}

func outputs(recs []model.StandardizedRecord) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.Output
	}
	return out
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "manifest path or URL (required)")
	runCmd.Flags().StringVar(&runOutput, "output", "standardized.csv", "output CSV path")
	runCmd.Flags().StringSliceVar(&runPartyCols, "party-columns", nil, "party name columns (default from config)")
	runCmd.Flags().StringSliceVar(&runAddressCols, "address-columns", nil, "address columns for city extraction (default from config)")
	runCmd.Flags().IntVar(&runSheet, "sheet", 0, "XLSX sheet index")
	runCmd.Flags().StringVar(&runSheetName, "sheet-name", "", "XLSX sheet name (overrides --sheet)")
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "skip the LLM oracles, suffix engine only")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "skip the mapping cache")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
