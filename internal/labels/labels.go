// Package labels detects descriptive labels in images.
//
// Two backends are provided: AWS Rekognition DetectLabels and a Gemini vision
// model prompted for JSON output. Both honour the same Config so that the
// index sees a consistent label set regardless of backend.
package labels

import (
	"context"
	"sort"
)

// Default detection bounds.
const (
	DefaultMaxLabels     = 20
	DefaultMinConfidence = 70.0
)

// Label is one detected label. Confidence is a percentage in [0, 100].
type Label struct {
	Name       string  `json:"Name"`
	Confidence float64 `json:"Confidence"`
}

// Result is the ordered label list returned by a detector.
type Result []Label

// Names returns the label names in order.
func (r Result) Names() []string {
	names := make([]string, len(r))
	for i, l := range r {
		names[i] = l.Name
	}
	return names
}

// Config bounds a detection call.
type Config struct {
	MaxLabels     int
	MinConfidence float64
}

// DefaultConfig returns the default detection bounds.
func DefaultConfig() Config {
	return Config{MaxLabels: DefaultMaxLabels, MinConfidence: DefaultMinConfidence}
}

// withDefaults fills zero-valued fields. A zero MinConfidence is kept since
// it is a meaningful setting.
func (c Config) withDefaults() Config {
	if c.MaxLabels <= 0 {
		c.MaxLabels = DefaultMaxLabels
	}
	return c
}

// Detector labels raw image bytes.
type Detector interface {
	DetectLabels(ctx context.Context, image []byte) (Result, error)
}

// ObjectDetector labels an image stored in S3 without downloading it.
type ObjectDetector interface {
	DetectS3Object(ctx context.Context, bucket, key string) (Result, error)
}

// normalize drops labels below the confidence floor, orders by confidence
// descending (name ascending on ties) and truncates to MaxLabels.
func normalize(in Result, cfg Config) Result {
	out := make(Result, 0, len(in))
	for _, l := range in {
		if l.Name == "" || l.Confidence < cfg.MinConfidence {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > cfg.MaxLabels {
		out = out[:cfg.MaxLabels]
	}
	return out
}
