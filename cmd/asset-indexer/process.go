package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fpang/asset-labeler/internal/cli"
	"github.com/fpang/asset-labeler/internal/trigger"
)

var (
	assetFlag  string
	bucketFlag string
	keyFlag    string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Label one asset and write its search record",
	Long: `Waits for the asset's file to finish processing in Contentful, then labels
it and writes the record, exactly as the asset Lambda does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		space, env, err := cli.ResolveTarget(spaceFlag, envFlag, app.Config.Contentful.SpaceID, app.Config.Contentful.EnvironmentID)
		if err != nil {
			return err
		}
		ev := trigger.AssetCreateEvent{AssetID: assetFlag, EnvironmentID: env, SpaceID: space}
		record, err := app.Pipeline.ProcessAssetEvent(cmd.Context(), ev)
		if err != nil {
			return err
		}
		return printJSON(cmd, record)
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Label an S3 object as if it had just been uploaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := app.Pipeline.ProcessUpload(cmd.Context(), trigger.UploadEvent{Bucket: bucketFlag, Key: keyFlag})
		if err != nil {
			return err
		}
		return printJSON(cmd, record)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove an asset's search record",
	RunE: func(cmd *cobra.Command, args []string) error {
		space, _, err := cli.ResolveTarget(spaceFlag, envFlag, app.Config.Contentful.SpaceID, app.Config.Contentful.EnvironmentID)
		if err != nil {
			return err
		}
		if err := app.Pipeline.RemoveAsset(cmd.Context(), space, assetFlag); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s/%s\n", space, assetFlag)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{processCmd, deleteCmd} {
		c.Flags().StringVar(&assetFlag, "asset", "", "Contentful asset ID")
		c.MarkFlagRequired("asset")
	}
	uploadCmd.Flags().StringVar(&bucketFlag, "bucket", "", "S3 bucket")
	uploadCmd.Flags().StringVar(&keyFlag, "key", "", "S3 object key")
	uploadCmd.MarkFlagRequired("bucket")
	uploadCmd.MarkFlagRequired("key")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
