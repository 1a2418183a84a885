package pipeline

import (
	"context"

	"github.com/fpang/asset-labeler/internal/labels"
	"github.com/fpang/asset-labeler/internal/searchindex"
	"github.com/rs/zerolog/log"
)

// WriteIndexRecord upserts the record of an asset. Writing the same asset
// twice overwrites the first record.
func (p *Pipeline) WriteIndexRecord(ctx context.Context, spaceID, assetID, url string, result labels.Result) (searchindex.IndexRecord, error) {
	record := searchindex.NewRecord(spaceID, assetID, url, result)
	if err := p.index.SaveRecord(ctx, record); err != nil {
		return record, &WriteError{ObjectID: record.ObjectID, Err: err}
	}
	log.Info().
		Str("spaceId", spaceID).
		Str("assetId", assetID).
		Str("objectId", record.ObjectID).
		Strs("labels", result.Names()).
		Msg("Index record written")
	return record, nil
}
