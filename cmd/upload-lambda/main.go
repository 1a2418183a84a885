// Package main provides the Lambda entry point for S3 upload notifications.
//
// Each record of the S3 event is labelled independently and written to the
// search index keyed by bucket and key. Images that are too large or in an
// unsupported format are logged and dropped, since a retry cannot succeed.
// Any other failure is returned so the batch is retried.
//
// Memory: 512 MB
// Timeout: 1 minute
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/lambdaboot"
	"github.com/fpang/asset-labeler/internal/logging"
	"github.com/fpang/asset-labeler/internal/pipeline"
	"github.com/fpang/asset-labeler/internal/trigger"
)

var commitHash = "dev"

var labeler *pipeline.Pipeline

func init() {
	initStart := time.Now()
	logging.Init()

	clients := lambdaboot.InitAWS()
	cfg := lambdaboot.LoadConfig(clients.SSM, false)
	labeler = lambdaboot.Build(clients, cfg).Pipeline

	lambdaboot.StartupLog("upload-lambda", initStart, cfg).
		CommitHash(commitHash).
		Log()
}

func handler(ctx context.Context, e events.S3Event) error {
	uploads, err := trigger.UploadEventsFromS3(e)
	if err != nil {
		log.Error().Err(err).Int("records", len(e.Records)).Msg("Invalid S3 event")
		return err
	}

	var errs []error
	processed := 0
	for _, u := range uploads {
		_, err := labeler.ProcessUpload(ctx, u)
		switch {
		case err == nil:
			processed++
		case errors.Is(err, pipeline.ErrTooLarge), errors.Is(err, pipeline.ErrUnsupportedFormat):
			log.Warn().Err(err).Str("object", u.ObjectURI()).Msg("Upload skipped")
		default:
			log.Error().Err(err).Str("object", u.ObjectURI()).Msg("Upload processing failed")
			errs = append(errs, fmt.Errorf("%s: %w", u.ObjectURI(), err))
		}
	}

	log.Info().Int("records", len(uploads)).Int("processed", processed).Int("failed", len(errs)).Msg("S3 event handled")
	return errors.Join(errs...)
}

func main() {
	lambda.Start(handler)
}
