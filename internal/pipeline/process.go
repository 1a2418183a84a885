package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/asset-labeler/internal/labels"
	"github.com/fpang/asset-labeler/internal/metrics"
	"github.com/fpang/asset-labeler/internal/searchindex"
	"github.com/fpang/asset-labeler/internal/trigger"
	"github.com/rs/zerolog/log"
)

// ProcessAssetEvent labels a newly created asset: wait for its file URL,
// download it, detect labels and write the record. Any failure aborts the
// invocation and is returned so the platform can retry it.
func (p *Pipeline) ProcessAssetEvent(ctx context.Context, ref trigger.AssetCreateEvent) (*searchindex.IndexRecord, error) {
	start := time.Now()
	logger := log.With().Str("spaceId", ref.SpaceID).Str("assetId", ref.AssetID).Logger()
	logger.Info().Str("environmentId", ref.EnvironmentID).Msg("Processing asset event")

	url, err := p.PollAssetURL(ctx, ref, p.cfg.PollWait, p.cfg.PollRetries)
	if err != nil {
		return nil, err
	}

	data, err := p.fetcher.Fetch(ctx, url, p.cfg.MaxImageBytes)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, fmt.Errorf("asset %s/%s: %w", ref.SpaceID, ref.AssetID, err)
		}
		return nil, &CollaboratorError{Op: "download", SpaceID: ref.SpaceID, AssetID: ref.AssetID, Err: err}
	}

	result, err := p.ExtractLabels(ctx, data)
	if err != nil {
		if errors.Is(err, ErrTooLarge) || errors.Is(err, ErrUnsupportedFormat) {
			return nil, fmt.Errorf("asset %s/%s: %w", ref.SpaceID, ref.AssetID, err)
		}
		return nil, &CollaboratorError{Op: "extract labels", SpaceID: ref.SpaceID, AssetID: ref.AssetID, Err: err}
	}

	record, err := p.WriteIndexRecord(ctx, ref.SpaceID, ref.AssetID, url, result)
	if err != nil {
		return nil, &CollaboratorError{Op: "write record", SpaceID: ref.SpaceID, AssetID: ref.AssetID, Err: err}
	}

	emitProcessed("asset-event", ref.SpaceID, len(result), time.Since(start))
	logger.Info().Dur("duration", time.Since(start)).Msg("Asset event processed")
	return &record, nil
}

// ProcessUpload labels an image uploaded to S3. Detectors that read S3
// directly are given the object location, others the downloaded bytes. The
// record is keyed by bucket and key.
func (p *Pipeline) ProcessUpload(ctx context.Context, u trigger.UploadEvent) (*searchindex.IndexRecord, error) {
	if p.objects == nil {
		return nil, fmt.Errorf("process upload %s: no object source configured", u.ObjectURI())
	}
	start := time.Now()
	logger := log.With().Str("bucket", u.Bucket).Str("key", u.Key).Logger()

	var result labels.Result
	if od, ok := p.detector.(labels.ObjectDetector); ok {
		size, err := p.objects.Size(ctx, u.Bucket, u.Key)
		if err != nil {
			return nil, &CollaboratorError{Op: "stat object", SpaceID: u.Bucket, AssetID: u.Key, Err: err}
		}
		if size > p.cfg.MaxImageBytes {
			return nil, fmt.Errorf("%s: %d bytes exceeds %d: %w", u.ObjectURI(), size, p.cfg.MaxImageBytes, ErrTooLarge)
		}
		result, err = od.DetectS3Object(ctx, u.Bucket, u.Key)
		if err != nil {
			return nil, &CollaboratorError{Op: "detect labels", SpaceID: u.Bucket, AssetID: u.Key, Err: err}
		}
	} else {
		data, err := p.objects.Download(ctx, u.Bucket, u.Key, p.cfg.MaxImageBytes)
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				return nil, fmt.Errorf("%s: %w", u.ObjectURI(), err)
			}
			return nil, &CollaboratorError{Op: "download object", SpaceID: u.Bucket, AssetID: u.Key, Err: err}
		}
		result, err = p.ExtractLabels(ctx, data)
		if err != nil {
			if errors.Is(err, ErrTooLarge) || errors.Is(err, ErrUnsupportedFormat) {
				return nil, fmt.Errorf("%s: %w", u.ObjectURI(), err)
			}
			return nil, &CollaboratorError{Op: "extract labels", SpaceID: u.Bucket, AssetID: u.Key, Err: err}
		}
	}

	record, err := p.WriteIndexRecord(ctx, u.Bucket, u.Key, u.ObjectURI(), result)
	if err != nil {
		return nil, &CollaboratorError{Op: "write record", SpaceID: u.Bucket, AssetID: u.Key, Err: err}
	}

	emitProcessed("upload", u.Bucket, len(result), time.Since(start))
	logger.Info().Int("labels", len(result)).Dur("duration", time.Since(start)).Msg("Upload processed")
	return &record, nil
}

// RemoveAsset deletes the record of an asset.
func (p *Pipeline) RemoveAsset(ctx context.Context, spaceID, assetID string) error {
	objectID := searchindex.ObjectID(spaceID, assetID)
	if err := p.index.DeleteRecords(ctx, objectID); err != nil {
		return &CollaboratorError{Op: "delete record", SpaceID: spaceID, AssetID: assetID, Err: err}
	}
	log.Info().Str("spaceId", spaceID).Str("assetId", assetID).Str("objectId", objectID).Msg("Index record removed")
	return nil
}

func emitProcessed(operation, source string, labelCount int, d time.Duration) {
	metrics.New(MetricsNamespace).
		Dimension("Operation", operation).
		Metric("LabelCount", float64(labelCount), metrics.UnitCount).
		Metric("ProcessingLatencyMs", float64(d.Milliseconds()), metrics.UnitMilliseconds).
		Count("AssetsProcessed").
		Property("source", source).
		Flush()
}
