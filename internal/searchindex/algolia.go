package searchindex

import (
	"context"
	"fmt"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/rs/zerolog/log"
)

// algoliaAPI is the subset of *search.Index used by AlgoliaIndex.
type algoliaAPI interface {
	saveObject(ctx context.Context, obj any) error
	deleteObjects(ctx context.Context, ids []string) error
	setSettings(ctx context.Context, s search.Settings) error
	clearObjects(ctx context.Context) error
	search(ctx context.Context, query string, limit int, hits any) error
}

// sdkIndex adapts *search.Index. Algolia v3 takes the context as a
// variadic option.
type sdkIndex struct {
	index *search.Index
}

func (s sdkIndex) saveObject(ctx context.Context, obj any) error {
	_, err := s.index.SaveObject(obj, ctx)
	return err
}

func (s sdkIndex) deleteObjects(ctx context.Context, ids []string) error {
	_, err := s.index.DeleteObjects(ids, ctx)
	return err
}

func (s sdkIndex) setSettings(ctx context.Context, settings search.Settings) error {
	_, err := s.index.SetSettings(settings, ctx)
	return err
}

func (s sdkIndex) clearObjects(ctx context.Context) error {
	_, err := s.index.ClearObjects(ctx)
	return err
}

func (s sdkIndex) search(ctx context.Context, query string, limit int, hits any) error {
	res, err := s.index.Search(query, opt.HitsPerPage(limit), ctx)
	if err != nil {
		return err
	}
	return res.UnmarshalHits(hits)
}

// AlgoliaIndex stores records in an Algolia index.
type AlgoliaIndex struct {
	api  algoliaAPI
	name string
}

// NewAlgoliaIndex connects to the named index of an Algolia application.
func NewAlgoliaIndex(appID, apiKey, indexName string) *AlgoliaIndex {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	client := search.NewClient(appID, apiKey)
	return &AlgoliaIndex{api: sdkIndex{index: client.InitIndex(indexName)}, name: indexName}
}

// SaveRecord upserts r by objectID.
func (a *AlgoliaIndex) SaveRecord(ctx context.Context, r IndexRecord) error {
	if err := a.api.saveObject(ctx, r); err != nil {
		return fmt.Errorf("algolia save %s: %w", r.ObjectID, err)
	}
	log.Debug().Str("index", a.name).Str("objectId", r.ObjectID).Int("labels", len(r.Labels)).Msg("Algolia record saved")
	return nil
}

// DeleteRecords removes objects by ID.
func (a *AlgoliaIndex) DeleteRecords(ctx context.Context, objectIDs ...string) error {
	if len(objectIDs) == 0 {
		return nil
	}
	if err := a.api.deleteObjects(ctx, objectIDs); err != nil {
		return fmt.Errorf("algolia delete %d objects: %w", len(objectIDs), err)
	}
	return nil
}

// ConfigureTypoTolerance applies the minimum word sizes for typo matches.
func (a *AlgoliaIndex) ConfigureTypoTolerance(ctx context.Context, s TypoSettings) error {
	settings := search.Settings{
		MinWordSizefor1Typo:  opt.MinWordSizefor1Typo(s.MinWordSizeFor1Typo),
		MinWordSizefor2Typos: opt.MinWordSizefor2Typos(s.MinWordSizeFor2Typos),
	}
	if err := a.api.setSettings(ctx, settings); err != nil {
		return fmt.Errorf("algolia set settings: %w", err)
	}
	return nil
}

// Clear removes every record but keeps settings.
func (a *AlgoliaIndex) Clear(ctx context.Context) error {
	if err := a.api.clearObjects(ctx); err != nil {
		return fmt.Errorf("algolia clear %s: %w", a.name, err)
	}
	return nil
}

// Search runs a full-text query.
func (a *AlgoliaIndex) Search(ctx context.Context, query string, limit int) ([]IndexRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var hits []IndexRecord
	if err := a.api.search(ctx, query, limit, &hits); err != nil {
		return nil, fmt.Errorf("algolia search %q: %w", query, err)
	}
	return hits, nil
}
