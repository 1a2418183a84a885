// Package pipeline labels Contentful assets and writes them to a search
// index. It covers the single-asset path started by a creation event, the
// S3 upload path, and the batch reindex of a whole space.
package pipeline

import (
	"context"
	"time"

	"github.com/fpang/asset-labeler/internal/contentful"
	"github.com/fpang/asset-labeler/internal/labels"
	"github.com/fpang/asset-labeler/internal/searchindex"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultPollWait      = 3 * time.Second
	DefaultPollRetries   = 20
	DefaultMaxImageBytes = 5 * 1024 * 1024
	DefaultPageSize      = 100
	DefaultConcurrency   = 1
)

// MetricsNamespace is the CloudWatch namespace of pipeline metrics.
const MetricsNamespace = "AssetLabeler"

// ReindexMode selects how a batch run treats existing records.
type ReindexMode string

const (
	// ModeAdditive upserts records in place. Records of deleted assets stay.
	ModeAdditive ReindexMode = "additive"
	// ModeDestructive clears the index before rebuilding it.
	ModeDestructive ReindexMode = "destructive"
)

// ParseReindexMode validates a mode string. Empty means additive.
func ParseReindexMode(s string) (ReindexMode, bool) {
	switch ReindexMode(s) {
	case "", ModeAdditive:
		return ModeAdditive, true
	case ModeDestructive:
		return ModeDestructive, true
	}
	return "", false
}

// Config holds the tunables of a Pipeline.
type Config struct {
	Locale        string
	MaxImageBytes int64
	PollWait      time.Duration
	PollRetries   int
	PageSize      int
	Concurrency   int
	Mode          ReindexMode
	Typo          searchindex.TypoSettings

	// EventURLScheme and BatchURLScheme complete protocol-relative file
	// URLs on the event and batch paths.
	EventURLScheme string
	BatchURLScheme string
}

func (c Config) withDefaults() Config {
	if c.Locale == "" {
		c.Locale = contentful.DefaultLocale
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = DefaultMaxImageBytes
	}
	if c.PollWait <= 0 {
		c.PollWait = DefaultPollWait
	}
	if c.PollRetries <= 0 {
		c.PollRetries = DefaultPollRetries
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Mode == "" {
		c.Mode = ModeAdditive
	}
	if c.Typo == (searchindex.TypoSettings{}) {
		c.Typo = searchindex.DefaultTypoSettings()
	}
	if c.EventURLScheme == "" {
		c.EventURLScheme = "http"
	}
	if c.BatchURLScheme == "" {
		c.BatchURLScheme = "https"
	}
	return c
}

// AssetSource reads assets from the CMS. *contentful.Client implements it.
type AssetSource interface {
	GetAsset(ctx context.Context, spaceID, environmentID, assetID string) (*contentful.Asset, error)
	ListAssets(ctx context.Context, spaceID, environmentID string, skip, limit int) (*contentful.AssetPage, error)
}

// Fetcher downloads an image, failing with ErrTooLarge past maxBytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, error)
}

// ObjectSource reads S3 objects. Download fails with ErrTooLarge past
// maxBytes.
type ObjectSource interface {
	Size(ctx context.Context, bucket, key string) (int64, error)
	Download(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, error)
}

// RunRecorder persists the summary of a batch run.
type RunRecorder interface {
	RecordRun(ctx context.Context, s *Summary) error
}

// RunNotifier announces a finished batch run.
type RunNotifier interface {
	RunCompleted(ctx context.Context, s *Summary) error
}

// Deps are the collaborators of a Pipeline. CMS, Detector and Index are
// required. Objects is needed only for uploads, and Runs and Notifier are
// optional.
type Deps struct {
	CMS      AssetSource
	Fetcher  Fetcher
	Detector labels.Detector
	Index    searchindex.Index
	Objects  ObjectSource
	Runs     RunRecorder
	Notifier RunNotifier
}

// Pipeline runs the labelling workflow.
type Pipeline struct {
	cfg      Config
	cms      AssetSource
	fetcher  Fetcher
	detector labels.Detector
	index    searchindex.Index
	objects  ObjectSource
	runs     RunRecorder
	notifier RunNotifier

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates a Pipeline. A nil Fetcher selects an HTTPFetcher.
func New(cfg Config, deps Deps) *Pipeline {
	p := &Pipeline{
		cfg:      cfg.withDefaults(),
		cms:      deps.CMS,
		fetcher:  deps.Fetcher,
		detector: deps.Detector,
		index:    deps.Index,
		objects:  deps.Objects,
		runs:     deps.Runs,
		notifier: deps.Notifier,
		sleep:    sleepCtx,
		now:      time.Now,
	}
	if p.fetcher == nil {
		p.fetcher = NewHTTPFetcher(nil)
	}
	return p
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// WithConfig returns a copy of p that shares its collaborators but uses cfg.
func (p *Pipeline) WithConfig(cfg Config) *Pipeline {
	cp := *p
	cp.cfg = cfg.withDefaults()
	return &cp
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
