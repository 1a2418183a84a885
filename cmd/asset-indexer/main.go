// Package main provides asset-indexer, the operator CLI for the labelling
// pipeline.
//
// Configuration is read from the environment and an optional .env file in
// the working directory. Secrets that are not set fall back to SSM, so AWS
// credentials must be available for the configured backends.
//
// Examples:
//
//	asset-indexer reindex --space sp1 --env master
//	asset-indexer reindex --mode destructive --concurrency 4
//	asset-indexer reindex --async
//	asset-indexer process --asset 3xT1k0
//	asset-indexer upload --bucket art-uploads --key gallery/cat.png
//	asset-indexer delete --asset 3xT1k0
//	asset-indexer search "red bicycle" --limit 10
//	asset-indexer runs 5f4c...
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/asset-labeler/internal/lambdaboot"
	"github.com/fpang/asset-labeler/internal/logging"
)

// Persistent flags
var (
	spaceFlag string
	envFlag   string
)

// app is built once per invocation by the root command's pre-run hook.
var (
	clients lambdaboot.AWSClients
	app     *lambdaboot.Components
)

// rootCmd is the main Cobra command for the asset-indexer CLI.
var rootCmd = &cobra.Command{
	Use:   "asset-indexer",
	Short: "Label Contentful assets and maintain their search index",
	Long: `asset-indexer runs the labelling pipeline by hand: rebuild the search index of
a Contentful environment, label a single asset or S3 object, remove a
record, query the index and inspect past reindex runs.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
		clients = lambdaboot.InitAWS()
		cfg := lambdaboot.LoadConfig(clients.SSM, false)
		app = lambdaboot.Build(clients, cfg)
		log.Debug().Str("command", cmd.Name()).Msg("Pipeline ready")
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&spaceFlag, "space", "", "Contentful space ID (default CONTENTFUL_SPACE_ID)")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "Contentful environment ID (default CONTENTFUL_ENVIRONMENT_ID)")

	rootCmd.AddCommand(reindexCmd, processCmd, uploadCmd, deleteCmd, searchCmd, runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
