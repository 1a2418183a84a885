package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/asset-labeler/internal/cli"
	"github.com/fpang/asset-labeler/internal/dispatch"
	"github.com/fpang/asset-labeler/internal/lambdaboot"
	"github.com/fpang/asset-labeler/internal/pipeline"
)

var (
	modeFlag        string
	concurrencyFlag int
	asyncFlag       bool
	yesFlag         bool
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index for every asset of an environment",
	Long: `Lists every asset of the environment and labels and indexes each one.
Assets without a processed file or over the size limit are skipped; other
failures are reported per asset and do not stop the run.

additive mode (default) upserts records in place. destructive mode clears the
index first, so records of deleted assets disappear too.

With --async the run is handed to the reindex Lambda (REINDEX_FUNCTION_NAME)
and the command returns immediately.`,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().StringVar(&modeFlag, "mode", "", "Reindex mode: additive or destructive (default REINDEX_MODE)")
	reindexCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Assets processed in parallel (default REINDEX_CONCURRENCY)")
	reindexCmd.Flags().BoolVar(&asyncFlag, "async", false, "Queue the run on the reindex Lambda instead of running locally")
	reindexCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Skip the confirmation for destructive mode")
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg := app.Config
	space, env, err := cli.ResolveTarget(spaceFlag, envFlag, cfg.Contentful.SpaceID, cfg.Contentful.EnvironmentID)
	if err != nil {
		return err
	}

	mode := cfg.Pipeline.Mode
	if modeFlag != "" {
		m, ok := pipeline.ParseReindexMode(modeFlag)
		if !ok {
			return fmt.Errorf("unknown mode %q", modeFlag)
		}
		mode = m
	}
	if mode == pipeline.ModeDestructive && !yesFlag {
		question := fmt.Sprintf("Destructive mode clears index %q before rebuilding. Continue?", cfg.Search.IndexName)
		if !cli.Confirm(os.Stdin, cmd.OutOrStdout(), question) {
			return fmt.Errorf("aborted")
		}
	}

	if asyncFlag {
		invoker := lambdaboot.NewInvoker(clients.Config, cfg.Webhook.ReindexFunctionName, "REINDEX_FUNCTION_NAME")
		req := dispatch.ReindexRequest{SpaceID: space, EnvironmentID: env, Mode: string(mode)}
		if err := invoker.DispatchReindex(cmd.Context(), req); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reindex of %s/%s queued on %s\n", space, env, cfg.Webhook.ReindexFunctionName)
		return nil
	}

	labeler := app.Pipeline
	if concurrencyFlag > 0 {
		opts := cfg.PipelineOptions()
		opts.Concurrency = concurrencyFlag
		labeler = labeler.WithConfig(opts)
	}

	summary, err := labeler.Reindex(cmd.Context(), space, env, mode)
	if summary != nil {
		cli.PrintSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		log.Error().Err(err).Msg("Reindex aborted")
		return err
	}
	return nil
}
