// Package main provides the Lambda entry point for the Contentful webhook.
//
// Routes (Function URL or API Gateway HTTP API):
//   - POST /webhook: Contentful asset events, authenticated by the
//     X-Webhook-Secret header
//
// Asset creation is handed to the asset Lambda (ASSET_FUNCTION_NAME) with an
// async invoke, because waiting for Contentful to process the upload can
// outlast the webhook's response deadline. Deletions are applied inline.
//
// Memory: 256 MB
// Timeout: 10 seconds
package main

import (
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/config"
	"github.com/fpang/asset-labeler/internal/lambdaboot"
	"github.com/fpang/asset-labeler/internal/logging"
	"github.com/fpang/asset-labeler/internal/webhook"
)

var commitHash = "dev"

var webhookHandler *webhook.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	clients := lambdaboot.InitAWS()
	cfg := lambdaboot.LoadConfig(clients.SSM, true)
	components := lambdaboot.Build(clients, cfg)
	invoker := lambdaboot.NewInvoker(clients.Config, cfg.Webhook.AssetFunctionName, "ASSET_FUNCTION_NAME")

	webhookHandler = webhook.NewHandler(cfg.Webhook.Secret, invoker, components.Pipeline)
	log.Info().Msg("Webhook handler initialized")

	lambdaboot.StartupLog("webhook-lambda", initStart, cfg).
		CommitHash(commitHash).
		Config("assetFunction", cfg.Webhook.AssetFunctionName).
		SSMParam("webhookSecret", cfg.Params[config.KeyWebhookSecret]).
		Log()
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/webhook", webhookHandler)

	adapter := httpadapter.NewV2(mux)
	lambda.Start(adapter.ProxyWithContext)
}
