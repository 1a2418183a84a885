// Package config loads the labeler's settings from the environment, with
// an optional .env file for local runs. Secrets that are not set directly
// are resolved later from SSM Parameter Store (see ResolveSecrets).
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fpang/asset-labeler/internal/labels"
	"github.com/fpang/asset-labeler/internal/pipeline"
	"github.com/fpang/asset-labeler/internal/searchindex"
)

// Search backends.
const (
	SearchAlgolia    = "algolia"
	SearchOpenSearch = "opensearch"
)

// Label detection backends.
const (
	LabelRekognition = "rekognition"
	LabelGemini      = "gemini"
)

// Config is the full runtime configuration.
type Config struct {
	Contentful ContentfulConfig
	Search     SearchConfig
	Labels     LabelConfig
	Pipeline   PipelineConfig
	Runs       RunsConfig
	Webhook    WebhookConfig

	// Params maps each secret's environment key to its SSM parameter name.
	Params map[string]string
}

type ContentfulConfig struct {
	Token         string
	BaseURL       string
	Locale        string
	SpaceID       string
	EnvironmentID string
}

type SearchConfig struct {
	Backend            string
	IndexName          string
	AlgoliaAppID       string
	AlgoliaAPIKey      string
	OpenSearchURLs     []string
	OpenSearchUsername string
	OpenSearchPassword string
}

type LabelConfig struct {
	Backend       string
	MaxLabels     int
	MinConfidence float64
	GeminiModel   string
	GeminiAPIKey  string
}

type PipelineConfig struct {
	MaxImageBytes int64
	PollWait      time.Duration
	PollRetries   int
	PageSize      int
	Concurrency   int
	Mode          pipeline.ReindexMode
}

type RunsConfig struct {
	TableName    string
	EventBusName string
}

type WebhookConfig struct {
	Secret              string
	AssetFunctionName   string
	ReindexFunctionName string
}

// Secret keys. Each falls back to SSM when unset.
const (
	KeyCMAToken           = "CMA_TOKEN"
	KeyAlgoliaKey         = "ALGOLIA_KEY"
	KeyOpenSearchPassword = "OPENSEARCH_PASSWORD"
	KeyGeminiAPIKey       = "GEMINI_API_KEY"
	KeyWebhookSecret      = "WEBHOOK_SECRET"
)

var defaultParams = map[string]string{
	KeyCMAToken:           "/asset-labeler/prod/cma-token",
	KeyAlgoliaKey:         "/asset-labeler/prod/algolia-key",
	KeyOpenSearchPassword: "/asset-labeler/prod/opensearch-password",
	KeyGeminiAPIKey:       "/asset-labeler/prod/gemini-api-key",
	KeyWebhookSecret:      "/asset-labeler/prod/webhook-secret",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CONTENTFUL_BASE_URL", "")
	v.SetDefault("CONTENTFUL_LOCALE", "en-US")
	v.SetDefault("CONTENTFUL_SPACE_ID", "")
	v.SetDefault("CONTENTFUL_ENVIRONMENT_ID", "master")
	v.SetDefault("SEARCH_BACKEND", SearchAlgolia)
	v.SetDefault("SEARCH_INDEX_NAME", searchindex.DefaultIndexName)
	v.SetDefault("ALGOLIA_APP", "")
	v.SetDefault("OPENSEARCH_URL", "")
	v.SetDefault("OPENSEARCH_USERNAME", "")
	v.SetDefault("LABEL_BACKEND", LabelRekognition)
	v.SetDefault("LABEL_MAX_LABELS", labels.DefaultMaxLabels)
	v.SetDefault("LABEL_MIN_CONFIDENCE", labels.DefaultMinConfidence)
	v.SetDefault("GEMINI_MODEL", labels.DefaultGeminiModel)
	v.SetDefault("MAX_IMAGE_BYTES", pipeline.DefaultMaxImageBytes)
	v.SetDefault("POLL_WAIT_SECONDS", int(pipeline.DefaultPollWait/time.Second))
	v.SetDefault("POLL_MAX_RETRIES", pipeline.DefaultPollRetries)
	v.SetDefault("REINDEX_PAGE_SIZE", pipeline.DefaultPageSize)
	v.SetDefault("REINDEX_CONCURRENCY", pipeline.DefaultConcurrency)
	v.SetDefault("REINDEX_MODE", string(pipeline.ModeAdditive))
	v.SetDefault("REINDEX_RUNS_TABLE_NAME", "")
	v.SetDefault("EVENT_BUS_NAME", "")
	v.SetDefault("ASSET_FUNCTION_NAME", "")
	v.SetDefault("REINDEX_FUNCTION_NAME", "")
	for key := range defaultParams {
		v.SetDefault(key, "")
		v.SetDefault("SSM_"+key+"_PARAM", defaultParams[key])
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	mode, ok := pipeline.ParseReindexMode(v.GetString("REINDEX_MODE"))
	if !ok {
		return nil, fmt.Errorf("REINDEX_MODE: unknown mode %q", v.GetString("REINDEX_MODE"))
	}

	cfg := &Config{
		Contentful: ContentfulConfig{
			Token:         v.GetString(KeyCMAToken),
			BaseURL:       v.GetString("CONTENTFUL_BASE_URL"),
			Locale:        v.GetString("CONTENTFUL_LOCALE"),
			SpaceID:       v.GetString("CONTENTFUL_SPACE_ID"),
			EnvironmentID: v.GetString("CONTENTFUL_ENVIRONMENT_ID"),
		},
		Search: SearchConfig{
			Backend:            strings.ToLower(v.GetString("SEARCH_BACKEND")),
			IndexName:          v.GetString("SEARCH_INDEX_NAME"),
			AlgoliaAppID:       v.GetString("ALGOLIA_APP"),
			AlgoliaAPIKey:      v.GetString(KeyAlgoliaKey),
			OpenSearchURLs:     splitList(v.GetString("OPENSEARCH_URL")),
			OpenSearchUsername: v.GetString("OPENSEARCH_USERNAME"),
			OpenSearchPassword: v.GetString(KeyOpenSearchPassword),
		},
		Labels: LabelConfig{
			Backend:       strings.ToLower(v.GetString("LABEL_BACKEND")),
			MaxLabels:     v.GetInt("LABEL_MAX_LABELS"),
			MinConfidence: v.GetFloat64("LABEL_MIN_CONFIDENCE"),
			GeminiModel:   v.GetString("GEMINI_MODEL"),
			GeminiAPIKey:  v.GetString(KeyGeminiAPIKey),
		},
		Pipeline: PipelineConfig{
			MaxImageBytes: v.GetInt64("MAX_IMAGE_BYTES"),
			PollWait:      time.Duration(v.GetInt("POLL_WAIT_SECONDS")) * time.Second,
			PollRetries:   v.GetInt("POLL_MAX_RETRIES"),
			PageSize:      v.GetInt("REINDEX_PAGE_SIZE"),
			Concurrency:   v.GetInt("REINDEX_CONCURRENCY"),
			Mode:          mode,
		},
		Runs: RunsConfig{
			TableName:    v.GetString("REINDEX_RUNS_TABLE_NAME"),
			EventBusName: v.GetString("EVENT_BUS_NAME"),
		},
		Webhook: WebhookConfig{
			Secret:              v.GetString(KeyWebhookSecret),
			AssetFunctionName:   v.GetString("ASSET_FUNCTION_NAME"),
			ReindexFunctionName: v.GetString("REINDEX_FUNCTION_NAME"),
		},
		Params: make(map[string]string, len(defaultParams)),
	}
	for key := range defaultParams {
		cfg.Params[key] = v.GetString("SSM_" + key + "_PARAM")
	}
	return cfg, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// secret returns a pointer to the field holding the given secret key.
func (c *Config) secret(key string) *string {
	switch key {
	case KeyCMAToken:
		return &c.Contentful.Token
	case KeyAlgoliaKey:
		return &c.Search.AlgoliaAPIKey
	case KeyOpenSearchPassword:
		return &c.Search.OpenSearchPassword
	case KeyGeminiAPIKey:
		return &c.Labels.GeminiAPIKey
	case KeyWebhookSecret:
		return &c.Webhook.Secret
	}
	return nil
}

// NeededSecrets lists the secret keys the selected backends use.
// withWebhook adds the webhook shared secret.
func (c *Config) NeededSecrets(withWebhook bool) []string {
	keys := []string{KeyCMAToken}
	switch c.Search.Backend {
	case SearchAlgolia:
		keys = append(keys, KeyAlgoliaKey)
	case SearchOpenSearch:
		if c.Search.OpenSearchUsername != "" {
			keys = append(keys, KeyOpenSearchPassword)
		}
	}
	if c.Labels.Backend == LabelGemini {
		keys = append(keys, KeyGeminiAPIKey)
	}
	if withWebhook {
		keys = append(keys, KeyWebhookSecret)
	}
	return keys
}

// SecretFetcher reads a secret by parameter name.
type SecretFetcher func(ctx context.Context, param string) (string, error)

// ResolveSecrets fills each listed secret that is still empty by fetching
// its parameter.
func (c *Config) ResolveSecrets(ctx context.Context, fetch SecretFetcher, keys ...string) error {
	for _, key := range keys {
		field := c.secret(key)
		if field == nil {
			return fmt.Errorf("unknown secret %s", key)
		}
		if *field != "" {
			continue
		}
		param := c.Params[key]
		if param == "" {
			continue
		}
		value, err := fetch(ctx, param)
		if err != nil {
			return fmt.Errorf("resolve %s from %s: %w", key, param, err)
		}
		*field = value
	}
	return nil
}

// Validate checks backend selections and the settings they require.
func (c *Config) Validate() error {
	var errs []error
	if c.Contentful.Token == "" {
		errs = append(errs, errors.New("CMA_TOKEN is required"))
	}
	switch c.Search.Backend {
	case SearchAlgolia:
		if c.Search.AlgoliaAppID == "" || c.Search.AlgoliaAPIKey == "" {
			errs = append(errs, errors.New("ALGOLIA_APP and ALGOLIA_KEY are required for the algolia backend"))
		}
	case SearchOpenSearch:
		if len(c.Search.OpenSearchURLs) == 0 {
			errs = append(errs, errors.New("OPENSEARCH_URL is required for the opensearch backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("SEARCH_BACKEND: unknown backend %q", c.Search.Backend))
	}
	switch c.Labels.Backend {
	case LabelRekognition:
	case LabelGemini:
		if c.Labels.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("LABEL_BACKEND: unknown backend %q", c.Labels.Backend))
	}
	if c.Labels.MinConfidence < 0 || c.Labels.MinConfidence > 100 {
		errs = append(errs, fmt.Errorf("LABEL_MIN_CONFIDENCE: %v out of range 0..100", c.Labels.MinConfidence))
	}
	if c.Pipeline.PageSize > 1000 {
		errs = append(errs, fmt.Errorf("REINDEX_PAGE_SIZE: %d exceeds 1000", c.Pipeline.PageSize))
	}
	return errors.Join(errs...)
}

// PipelineOptions converts to pipeline.Config.
func (c *Config) PipelineOptions() pipeline.Config {
	return pipeline.Config{
		Locale:        c.Contentful.Locale,
		MaxImageBytes: c.Pipeline.MaxImageBytes,
		PollWait:      c.Pipeline.PollWait,
		PollRetries:   c.Pipeline.PollRetries,
		PageSize:      c.Pipeline.PageSize,
		Concurrency:   c.Pipeline.Concurrency,
		Mode:          c.Pipeline.Mode,
	}
}

// LabelOptions converts to labels.Config.
func (c *Config) LabelOptions() labels.Config {
	return labels.Config{MaxLabels: c.Labels.MaxLabels, MinConfidence: c.Labels.MinConfidence}
}
