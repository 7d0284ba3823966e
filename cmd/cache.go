package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborline/manifest-cli/internal/store"
)

var cacheClearKind string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the mapping cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached mapping counts per kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := cacheCounts(ctx, st)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(counts)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kinds, err := clearKinds(cacheClearKind)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := cacheClear(ctx, st, kinds)
		if err != nil {
			return err
		}
		zap.L().Info("cache cleared",
			zap.String("kind", cacheClearKind),
			zap.Int("deleted", deleted),
		)
		return nil
	},
}

// cacheCounts returns the cached mapping count per kind.
func cacheCounts(ctx context.Context, st store.Store) (map[string]int, error) {
	counts := make(map[string]int, 2)
	for _, kind := range []store.Kind{store.KindParty, store.KindCity} {
		n, err := st.CountMappings(ctx, kind)
		if err != nil {
			return nil, eris.Wrapf(err, "count %s mappings", kind)
		}
		counts[string(kind)] = n
	}
	return counts, nil
}

// cacheClear deletes all mappings of the given kinds and returns the
// total removed.
func cacheClear(ctx context.Context, st store.Store, kinds []store.Kind) (int, error) {
	deleted := 0
	for _, kind := range kinds {
		n, err := st.DeleteKind(ctx, kind)
		if err != nil {
			return deleted, eris.Wrapf(err, "clear %s mappings", kind)
		}
		deleted += n
	}
	return deleted, nil
}

// clearKinds resolves the --kind flag to the kinds to delete.
func clearKinds(flag string) ([]store.Kind, error) {
	switch flag {
	case "party":
		return []store.Kind{store.KindParty}, nil
	case "city":
		return []store.Kind{store.KindCity}, nil
	case "all":
		return []store.Kind{store.KindParty, store.KindCity}, nil
	default:
		return nil, eris.Errorf("unknown kind %q (party, city, or all)", flag)
	}
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheClearKind, "kind", "all", "mappings to delete: party, city, or all")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
