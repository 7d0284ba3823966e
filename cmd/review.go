package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborline/manifest-cli/internal/fetcher"
	"github.com/harborline/manifest-cli/internal/model"
	"github.com/harborline/manifest-cli/internal/review"
)

var (
	reviewInput   string
	reviewColumn  string
	reviewRefined string
	reviewSample  int
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Export a sample of standardized mappings to Notion",
	Long:  "Reads a processed manifest CSV, pairs a raw column with its refined sibling, and creates one Notion page per sampled mapping for human review.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("review"); err != nil {
			return err
		}

		m, err := fetcher.LoadManifest(ctx, reviewInput, fetcher.LoadOptions{})
		if err != nil {
			return eris.Wrap(err, "load manifest")
		}

		refined := reviewRefined
		if refined == "" {
			refined = "Refined " + reviewColumn
		}
		records, err := recordsFromManifest(m, reviewColumn, refined)
		if err != nil {
			return err
		}

		sampleSize := reviewSample
		if sampleSize == 0 {
			sampleSize = cfg.Review.SampleSize
		}
		sampled := review.Sample(records, sampleSize)

		batchID := review.NewBatchID()
		zap.L().Info("exporting review sample",
			zap.String("batch_id", batchID),
			zap.String("column", reviewColumn),
			zap.Int("sampled", len(sampled)),
			zap.Int("total", len(records)),
		)

		exporter := review.NewExporter(review.NewClient(cfg.Review.Token), cfg.Review.DatabaseID)
		exported, err := exporter.Export(ctx, batchID, reviewColumn, sampled)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), review.Describe(batchID, exported, len(sampled)))
		return nil
	},
}

// recordsFromManifest pairs raw and refined column values into records,
// dropping rows whose refined cell is empty.
func recordsFromManifest(m *fetcher.Manifest, rawCol, refinedCol string) ([]model.StandardizedRecord, error) {
	raws, err := m.Column(rawCol)
	if err != nil {
		return nil, err
	}
	outs, err := m.Column(refinedCol)
	if err != nil {
		return nil, err
	}

	var records []model.StandardizedRecord
	for i := range raws {
		if outs[i] == "" {
			continue
		}
		records = append(records, model.StandardizedRecord{RawInput: raws[i], Output: outs[i]})
	}
	return records, nil
}

func init() {
	reviewCmd.Flags().StringVar(&reviewInput, "input", "", "processed manifest CSV (required)")
	reviewCmd.Flags().StringVar(&reviewColumn, "column", "", "raw column to review (required)")
	reviewCmd.Flags().StringVar(&reviewRefined, "refined-column", "", "refined column name (default \"Refined <column>\")")
	reviewCmd.Flags().IntVar(&reviewSample, "sample", 0, "sample size (default from config)")
	_ = reviewCmd.MarkFlagRequired("input")
	_ = reviewCmd.MarkFlagRequired("column")
	rootCmd.AddCommand(reviewCmd)
}
