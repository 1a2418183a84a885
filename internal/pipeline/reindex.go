package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/asset-labeler/internal/contentful"
	"github.com/fpang/asset-labeler/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Status classifies one asset of a batch run.
type Status string

const (
	StatusIndexed         Status = "indexed"
	StatusSkippedNoURL    Status = "skipped_no_url"
	StatusSkippedTooLarge Status = "skipped_too_large"
	StatusFailed          Status = "failed"
)

// Outcome is the result for one listed asset.
type Outcome struct {
	AssetID  string        `json:"assetId"`
	Status   Status        `json:"status"`
	Labels   int           `json:"labels,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"durationNs"`
}

// Summary reports a batch run. Outcomes are in listing order.
type Summary struct {
	RunID           string      `json:"runId"`
	SpaceID         string      `json:"spaceId"`
	EnvironmentID   string      `json:"environmentId"`
	Mode            ReindexMode `json:"mode"`
	StartedAt       time.Time   `json:"startedAt"`
	FinishedAt      time.Time   `json:"finishedAt"`
	Indexed         int         `json:"indexed"`
	SkippedNoURL    int         `json:"skippedNoUrl"`
	SkippedTooLarge int         `json:"skippedTooLarge"`
	Failed          int         `json:"failed"`
	Aborted         string      `json:"aborted,omitempty"`
	Outcomes        []Outcome   `json:"outcomes"`
}

// Listed returns the number of assets seen.
func (s *Summary) Listed() int {
	return len(s.Outcomes)
}

func (s *Summary) tally() {
	s.Indexed, s.SkippedNoURL, s.SkippedTooLarge, s.Failed = 0, 0, 0, 0
	for _, o := range s.Outcomes {
		switch o.Status {
		case StatusIndexed:
			s.Indexed++
		case StatusSkippedNoURL:
			s.SkippedNoURL++
		case StatusSkippedTooLarge:
			s.SkippedTooLarge++
		case StatusFailed:
			s.Failed++
		}
	}
}

// ReindexAll rebuilds the index for every asset of an environment using the
// configured mode.
func (p *Pipeline) ReindexAll(ctx context.Context, spaceID, environmentID string) (*Summary, error) {
	return p.Reindex(ctx, spaceID, environmentID, p.cfg.Mode)
}

// Reindex runs a batch over every asset of an environment. Per-asset
// failures are recorded in the summary and do not stop the run. A page
// listing error stops the run and is returned with the partial summary.
func (p *Pipeline) Reindex(ctx context.Context, spaceID, environmentID string, mode ReindexMode) (*Summary, error) {
	if mode == "" {
		mode = p.cfg.Mode
	}
	s := &Summary{
		RunID:         uuid.NewString(),
		SpaceID:       spaceID,
		EnvironmentID: environmentID,
		Mode:          mode,
		StartedAt:     p.now().UTC(),
	}
	logger := log.With().Str("runId", s.RunID).Str("spaceId", spaceID).Str("environmentId", environmentID).Logger()
	logger.Info().Str("mode", string(mode)).Int("concurrency", p.cfg.Concurrency).Msg("Reindex started")

	if mode == ModeDestructive {
		if err := p.index.Clear(ctx); err != nil {
			return s, &CollaboratorError{Op: "clear index", SpaceID: spaceID, Err: err}
		}
		logger.Info().Msg("Index cleared")
	}
	if err := p.index.ConfigureTypoTolerance(ctx, p.cfg.Typo); err != nil {
		return s, &CollaboratorError{Op: "configure typo tolerance", SpaceID: spaceID, Err: err}
	}

	// Each listed asset gets a slot in listing order; workers fill slots.
	var slots []*Outcome
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	var listErr error
	for asset, err := range p.Assets(ctx, spaceID, environmentID) {
		if err != nil {
			listErr = err
			break
		}
		slot := &Outcome{AssetID: asset.ID()}
		slots = append(slots, slot)
		g.Go(func() error {
			*slot = p.indexAsset(ctx, spaceID, asset)
			return nil
		})
	}
	g.Wait()

	s.Outcomes = make([]Outcome, len(slots))
	for i, o := range slots {
		s.Outcomes[i] = *o
	}
	s.tally()
	s.FinishedAt = p.now().UTC()
	if listErr != nil {
		s.Aborted = listErr.Error()
	}

	p.finishRun(ctx, s)

	logger.Info().
		Int("listed", s.Listed()).
		Int("indexed", s.Indexed).
		Int("skippedNoUrl", s.SkippedNoURL).
		Int("skippedTooLarge", s.SkippedTooLarge).
		Int("failed", s.Failed).
		Dur("duration", s.FinishedAt.Sub(s.StartedAt)).
		Msg("Reindex finished")

	if listErr != nil {
		return s, fmt.Errorf("reindex %s/%s aborted after %d assets: %w", spaceID, environmentID, s.Listed(), listErr)
	}
	return s, nil
}

// indexAsset processes one listed asset. It never returns an error; every
// failure is folded into the outcome.
func (p *Pipeline) indexAsset(ctx context.Context, spaceID string, asset contentful.Asset) Outcome {
	start := time.Now()
	out := Outcome{AssetID: asset.ID()}
	logger := log.With().Str("spaceId", spaceID).Str("assetId", out.AssetID).Logger()

	finish := func(status Status, err error) Outcome {
		out.Status = status
		out.Duration = time.Since(start)
		if err != nil {
			out.Error = err.Error()
		}
		if status == StatusFailed {
			logger.Error().Err(err).Msg("Asset failed")
		} else if status != StatusIndexed {
			logger.Info().Str("status", string(status)).Err(err).Msg("Asset skipped")
		}
		return out
	}

	raw := asset.FileURL(p.cfg.Locale)
	if raw == "" {
		return finish(StatusSkippedNoURL, ErrNoURL)
	}
	if size := asset.FileSize(p.cfg.Locale); size > p.cfg.MaxImageBytes {
		return finish(StatusSkippedTooLarge, fmt.Errorf("reported size %d: %w", size, ErrTooLarge))
	}

	url := absoluteURL(p.cfg.BatchURLScheme, raw)
	data, err := p.fetcher.Fetch(ctx, url, p.cfg.MaxImageBytes)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return finish(StatusSkippedTooLarge, err)
		}
		return finish(StatusFailed, &CollaboratorError{Op: "download", SpaceID: spaceID, AssetID: out.AssetID, Err: err})
	}

	result, err := p.ExtractLabels(ctx, data)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return finish(StatusSkippedTooLarge, err)
		}
		return finish(StatusFailed, &CollaboratorError{Op: "extract labels", SpaceID: spaceID, AssetID: out.AssetID, Err: err})
	}

	if _, err := p.WriteIndexRecord(ctx, spaceID, out.AssetID, url, result); err != nil {
		return finish(StatusFailed, err)
	}
	out.Labels = len(result)
	return finish(StatusIndexed, nil)
}

// finishRun records, announces and emits metrics for a run. Failures here
// are logged and do not change the run result.
func (p *Pipeline) finishRun(ctx context.Context, s *Summary) {
	if p.runs != nil {
		if err := p.runs.RecordRun(ctx, s); err != nil {
			log.Warn().Err(err).Str("runId", s.RunID).Msg("Failed to record reindex run")
		}
	}
	if p.notifier != nil {
		if err := p.notifier.RunCompleted(ctx, s); err != nil {
			log.Warn().Err(err).Str("runId", s.RunID).Msg("Failed to publish reindex run event")
		}
	}

	metrics.New(MetricsNamespace).
		Dimension("Operation", "reindex").
		Metric("AssetsListed", float64(s.Listed()), metrics.UnitCount).
		Metric("AssetsIndexed", float64(s.Indexed), metrics.UnitCount).
		Metric("AssetsSkipped", float64(s.SkippedNoURL+s.SkippedTooLarge), metrics.UnitCount).
		Metric("AssetsFailed", float64(s.Failed), metrics.UnitCount).
		Metric("RunDurationMs", float64(s.FinishedAt.Sub(s.StartedAt).Milliseconds()), metrics.UnitMilliseconds).
		Property("runId", s.RunID).
		Property("spaceId", s.SpaceID).
		Flush()
}
