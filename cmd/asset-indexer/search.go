package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fpang/asset-labeler/internal/cli"
	"github.com/fpang/asset-labeler/internal/searchindex"
)

var (
	limitFlag int
	widthFlag int
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Query the search index by label",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := app.Index.Search(cmd.Context(), strings.Join(args, " "), limitFlag)
		if err != nil {
			return err
		}
		cli.PrintRecords(cmd.OutOrStdout(), records, widthFlag)
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs RUN_ID",
	Short: "Show a recorded reindex run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.Runs == nil {
			return fmt.Errorf("run ledger disabled: set REINDEX_RUNS_TABLE_NAME")
		}
		run, err := app.Runs.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %s not found", args[0])
		}
		assets, err := app.Runs.ListAssetRecords(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cli.PrintRun(cmd.OutOrStdout(), run, assets)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum hits")
	searchCmd.Flags().IntVar(&widthFlag, "width", searchindex.DefaultThumbWidth, "Thumbnail width in pixels")
}
