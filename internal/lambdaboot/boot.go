// Package lambdaboot provides the shared Lambda cold-start bootstrap.
//
// Every entry point needs some subset of: AWS config, secrets from SSM, the
// search index, the label detector, and startup logging. The helpers here
// compose those so each Lambda's init() stays short.
package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/config"
	"github.com/fpang/asset-labeler/internal/contentful"
	"github.com/fpang/asset-labeler/internal/dispatch"
	"github.com/fpang/asset-labeler/internal/labels"
	"github.com/fpang/asset-labeler/internal/logging"
	"github.com/fpang/asset-labeler/internal/notify"
	"github.com/fpang/asset-labeler/internal/pipeline"
	"github.com/fpang/asset-labeler/internal/s3util"
	"github.com/fpang/asset-labeler/internal/searchindex"
	"github.com/fpang/asset-labeler/internal/store"
)

// AWSClients holds the core AWS SDK clients used across Lambdas.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// GetParameterAPI is the subset of *ssm.Client used to read secrets.
type GetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMFetcher reads SecureString parameters with decryption.
func SSMFetcher(client GetParameterAPI) config.SecretFetcher {
	return func(ctx context.Context, param string) (string, error) {
		start := time.Now()
		result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(param),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return "", err
		}
		if result.Parameter == nil || result.Parameter.Value == nil {
			return "", fmt.Errorf("parameter %s has no value", param)
		}
		log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Secret loaded from SSM")
		return *result.Parameter.Value, nil
	}
}

// LoadConfig loads configuration, resolves missing secrets from SSM and
// validates the result. Fatals on error. withWebhook also resolves the
// webhook shared secret.
func LoadConfig(ssmClient GetParameterAPI, withWebhook bool) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.ResolveSecrets(context.Background(), SSMFetcher(ssmClient), cfg.NeededSecrets(withWebhook)...); err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve secrets")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg
}

// NewIndex creates the configured search index client.
func NewIndex(cfg *config.Config) (searchindex.Index, error) {
	switch cfg.Search.Backend {
	case config.SearchAlgolia:
		return searchindex.NewAlgoliaIndex(cfg.Search.AlgoliaAppID, cfg.Search.AlgoliaAPIKey, cfg.Search.IndexName), nil
	case config.SearchOpenSearch:
		return searchindex.NewOpenSearchIndex(cfg.Search.OpenSearchURLs,
			cfg.Search.OpenSearchUsername, cfg.Search.OpenSearchPassword, cfg.Search.IndexName)
	}
	return nil, fmt.Errorf("unknown search backend %q", cfg.Search.Backend)
}

// NewDetector creates the configured label detector.
func NewDetector(ctx context.Context, awsCfg aws.Config, cfg *config.Config) (labels.Detector, error) {
	switch cfg.Labels.Backend {
	case config.LabelRekognition:
		return labels.NewRekognitionDetector(rekognition.NewFromConfig(awsCfg), cfg.LabelOptions()), nil
	case config.LabelGemini:
		return labels.NewGeminiDetector(ctx, cfg.Labels.GeminiAPIKey, cfg.Labels.GeminiModel, cfg.LabelOptions())
	}
	return nil, fmt.Errorf("unknown label backend %q", cfg.Labels.Backend)
}

// Components is a fully wired pipeline and the stores behind it.
type Components struct {
	Pipeline *pipeline.Pipeline
	Index    searchindex.Index
	Runs     *store.RunStore
	Config   *config.Config
}

// Build wires a pipeline from configuration. Fatals on error. The run
// ledger and the run-completed events are attached only when their table
// or bus is configured.
func Build(clients AWSClients, cfg *config.Config) *Components {
	ctx := context.Background()

	index, err := NewIndex(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Search.Backend).Msg("Failed to create search index client")
	}
	detector, err := NewDetector(ctx, clients.Config, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Labels.Backend).Msg("Failed to create label detector")
	}

	deps := pipeline.Deps{
		CMS:      contentful.NewClient(cfg.Contentful.Token, cfg.Contentful.BaseURL),
		Detector: detector,
		Index:    index,
		Objects:  s3util.NewReader(s3.NewFromConfig(clients.Config)),
	}
	c := &Components{Index: index, Config: cfg}
	if cfg.Runs.TableName != "" {
		c.Runs = store.NewRunStore(dynamodb.NewFromConfig(clients.Config), cfg.Runs.TableName)
		deps.Runs = c.Runs
	} else {
		log.Warn().Msg("REINDEX_RUNS_TABLE_NAME not set, run ledger disabled")
	}
	if cfg.Runs.EventBusName != "" {
		deps.Notifier = notify.NewEmitter(eventbridge.NewFromConfig(clients.Config), cfg.Runs.EventBusName)
	}

	c.Pipeline = pipeline.New(cfg.PipelineOptions(), deps)
	return c
}

// NewInvoker creates an async dispatcher for the named function. Fatals if
// the name is empty.
func NewInvoker(awsCfg aws.Config, functionName, envVar string) *dispatch.Invoker {
	if functionName == "" {
		log.Fatal().Str("envVar", envVar).Msg("Function name environment variable is required")
	}
	return dispatch.NewInvoker(lambdasvc.NewFromConfig(awsCfg), functionName)
}

// StartupLog returns a startup logger pre-filled with the configured
// backends and resources.
func StartupLog(name string, initStart time.Time, cfg *config.Config) *logging.StartupLogger {
	l := logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
	if cfg == nil {
		return l
	}
	detail := ""
	if cfg.Labels.Backend == config.LabelGemini {
		detail = cfg.Labels.GeminiModel
	}
	return l.
		ContentSpace(cfg.Contentful.SpaceID, cfg.Contentful.EnvironmentID).
		SearchIndex(cfg.Search.Backend, cfg.Search.IndexName).
		Detector(cfg.Labels.Backend, detail).
		DynamoTable("runs", cfg.Runs.TableName).
		EventBus("runs", cfg.Runs.EventBusName).
		Config("maxImageBytes", fmt.Sprint(cfg.Pipeline.MaxImageBytes)).
		Config("reindexMode", string(cfg.Pipeline.Mode))
}
