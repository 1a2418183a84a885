// Package main provides the Lambda entry point that labels one Contentful
// asset.
//
// The payload is either {"assetId","environmentId","spaceId"} (as sent by
// the webhook Lambda) or a raw Contentful asset body. The function polls the
// CMA until the asset's file URL is available, downloads the image, detects
// labels and writes the search record. Errors are returned so that the async
// invocation is retried and, after that, sent to the configured DLQ.
//
// Memory: 512 MB
// Timeout: 2 minutes (20 polls x 3s plus detection)
package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/lambdaboot"
	"github.com/fpang/asset-labeler/internal/logging"
	"github.com/fpang/asset-labeler/internal/pipeline"
	"github.com/fpang/asset-labeler/internal/searchindex"
	"github.com/fpang/asset-labeler/internal/trigger"
)

// commitHash is set at build time via -ldflags.
var commitHash = "dev"

var labeler *pipeline.Pipeline

var coldStart = true

func init() {
	initStart := time.Now()
	logging.Init()

	clients := lambdaboot.InitAWS()
	cfg := lambdaboot.LoadConfig(clients.SSM, false)
	labeler = lambdaboot.Build(clients, cfg).Pipeline

	lambdaboot.StartupLog("asset-lambda", initStart, cfg).
		CommitHash(commitHash).
		Log()
}

// AssetResult is returned to synchronous callers.
type AssetResult struct {
	ObjectID string   `json:"objectId"`
	URL      string   `json:"url"`
	Labels   []string `json:"labels"`
}

func handler(ctx context.Context, payload json.RawMessage) (*AssetResult, error) {
	if coldStart {
		coldStart = false
		log.Info().Msg("Cold start invocation")
	}

	ev, err := trigger.DecodeAssetEvent(payload)
	if err != nil {
		log.Error().Err(err).Msg("Invalid asset event")
		return nil, err
	}

	record, err := labeler.ProcessAssetEvent(ctx, ev)
	if err != nil {
		log.Error().Err(err).Str("spaceId", ev.SpaceID).Str("assetId", ev.AssetID).Msg("Asset processing failed")
		return nil, err
	}
	return resultFor(record), nil
}

func resultFor(r *searchindex.IndexRecord) *AssetResult {
	names := make([]string, len(r.Labels))
	for i, l := range r.Labels {
		names[i] = l.Name
	}
	return &AssetResult{ObjectID: r.ObjectID, URL: r.URL, Labels: names}
}

func main() {
	lambda.Start(handler)
}
