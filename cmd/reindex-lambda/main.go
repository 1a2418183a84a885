// Package main provides the Lambda entry point for a batch reindex of one
// Contentful environment.
//
// Payload: {"spaceId","environmentId","mode"}. Empty fields fall back to
// CONTENTFUL_SPACE_ID, CONTENTFUL_ENVIRONMENT_ID and REINDEX_MODE. The run
// summary is returned, recorded in the run ledger and announced on the
// event bus when those are configured.
//
// Memory: 1024 MB
// Timeout: 15 minutes
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/config"
	"github.com/fpang/asset-labeler/internal/dispatch"
	"github.com/fpang/asset-labeler/internal/lambdaboot"
	"github.com/fpang/asset-labeler/internal/logging"
	"github.com/fpang/asset-labeler/internal/pipeline"
)

var commitHash = "dev"

var (
	labeler *pipeline.Pipeline
	appCfg  *config.Config
)

func init() {
	initStart := time.Now()
	logging.Init()

	clients := lambdaboot.InitAWS()
	appCfg = lambdaboot.LoadConfig(clients.SSM, false)
	labeler = lambdaboot.Build(clients, appCfg).Pipeline

	lambdaboot.StartupLog("reindex-lambda", initStart, appCfg).
		CommitHash(commitHash).
		Config("concurrency", fmt.Sprint(appCfg.Pipeline.Concurrency)).
		Log()
}

func handler(ctx context.Context, req dispatch.ReindexRequest) (*pipeline.Summary, error) {
	spaceID := req.SpaceID
	if spaceID == "" {
		spaceID = appCfg.Contentful.SpaceID
	}
	envID := req.EnvironmentID
	if envID == "" {
		envID = appCfg.Contentful.EnvironmentID
	}
	if spaceID == "" || envID == "" {
		return nil, fmt.Errorf("reindex: spaceId and environmentId are required")
	}

	mode := appCfg.Pipeline.Mode
	if req.Mode != "" {
		m, ok := pipeline.ParseReindexMode(req.Mode)
		if !ok {
			return nil, fmt.Errorf("reindex: unknown mode %q", req.Mode)
		}
		mode = m
	}

	summary, err := labeler.Reindex(ctx, spaceID, envID, mode)
	if err != nil {
		log.Error().Err(err).Str("spaceId", spaceID).Str("environmentId", envID).Msg("Reindex aborted")
		return summary, err
	}
	return summary, nil
}

func main() {
	lambda.Start(handler)
}
