package labels

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fpang/asset-labeler/internal/assets"
	"github.com/fpang/asset-labeler/internal/jsonutil"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-3-flash-preview"

// contentGenerator is satisfied by *genai.Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiDetector labels images with a Gemini vision model.
type GeminiDetector struct {
	models contentGenerator
	model  string
	cfg    Config
}

// NewGeminiDetector creates a detector backed by the Gemini API.
func NewGeminiDetector(ctx context.Context, apiKey, model string, cfg Config) (*GeminiDetector, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiDetector(client.Models, model, cfg), nil
}

func newGeminiDetector(models contentGenerator, model string, cfg Config) *GeminiDetector {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiDetector{models: models, model: model, cfg: cfg.withDefaults()}
}

// DetectLabels sends the image inline and parses the JSON label list.
func (d *GeminiDetector) DetectLabels(ctx context.Context, image []byte) (Result, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: assets.LabelSystemPrompt}},
		},
		ResponseMIMEType: "application/json",
	}
	prompt := assets.RenderLabelRequestPrompt(d.cfg.MaxLabels, d.cfg.MinConfidence)
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: http.DetectContentType(image), Data: image}},
			{Text: prompt},
		},
	}}

	start := time.Now()
	resp, err := d.models.GenerateContent(ctx, d.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("gemini returned an empty response")
	}

	raw, err := jsonutil.ParseJSON[[]Label](resp.Text())
	if err != nil {
		return nil, fmt.Errorf("parse gemini labels: %w", err)
	}
	result := normalize(raw, d.cfg)

	log.Debug().
		Str("model", d.model).
		Int("labels", len(result)).
		Dur("duration", time.Since(start)).
		Msg("Gemini labels detected")
	return result, nil
}
