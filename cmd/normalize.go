package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/harborline/manifest-cli/internal/normalize"
)

var normalizeClean bool

var normalizeCmd = &cobra.Command{
	Use:   "normalize [name ...]",
	Short: "Standardize entity suffixes in party names",
	Long:  "Rewrites business suffixes to canonical forms. Names come from arguments, or from stdin one per line. Runs fully offline.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := loadRules(cfg.Clean)
		if err != nil {
			return err
		}
		engine := normalize.Default()

		process := func(name string) {
			if normalizeClean {
				name = normalize.Clean(name, rules)
			}
			fmt.Fprintln(cmd.OutOrStdout(), engine.Normalize(name))
		}

		if len(args) > 0 {
			for _, name := range args {
				process(name)
			}
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			process(scanner.Text())
		}
		return eris.Wrap(scanner.Err(), "read stdin")
	},
}

func init() {
	normalizeCmd.Flags().BoolVar(&normalizeClean, "clean", false, "apply pre-oracle cleanup before suffix rewriting")
	rootCmd.AddCommand(normalizeCmd)
}
