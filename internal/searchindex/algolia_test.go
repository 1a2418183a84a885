package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/fpang/asset-labeler/internal/labels"
)

type fakeAlgolia struct {
	saved    []any
	deleted  []string
	settings *search.Settings
	cleared  bool
	hits     string
	err      error
}

func (f *fakeAlgolia) saveObject(_ context.Context, obj any) error {
	f.saved = append(f.saved, obj)
	return f.err
}

func (f *fakeAlgolia) deleteObjects(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return f.err
}

func (f *fakeAlgolia) setSettings(_ context.Context, s search.Settings) error {
	f.settings = &s
	return f.err
}

func (f *fakeAlgolia) clearObjects(context.Context) error {
	f.cleared = true
	return f.err
}

func (f *fakeAlgolia) search(_ context.Context, _ string, _ int, hits any) error {
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.hits), hits)
}

func TestAlgoliaIndex_SaveRecord(t *testing.T) {
	fake := &fakeAlgolia{}
	idx := &AlgoliaIndex{api: fake, name: "art-assets"}
	rec := NewRecord("sp1", "a1", "http://x/a1.png", labels.Result{{Name: "Cat", Confidence: 91.2}})

	if err := idx.SaveRecord(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.saved) != 1 || fake.saved[0].(IndexRecord).ObjectID != "sp1a1" {
		t.Errorf("unexpected saved objects: %+v", fake.saved)
	}
}

func TestAlgoliaIndex_SaveRecordError(t *testing.T) {
	boom := errors.New("unreachable")
	idx := &AlgoliaIndex{api: &fakeAlgolia{err: boom}, name: "art-assets"}
	if err := idx.SaveRecord(context.Background(), IndexRecord{ObjectID: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestAlgoliaIndex_ConfigureTypoTolerance(t *testing.T) {
	fake := &fakeAlgolia{}
	idx := &AlgoliaIndex{api: fake, name: "art-assets"}

	if err := idx.ConfigureTypoTolerance(context.Background(), DefaultTypoSettings()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.settings == nil {
		t.Fatal("expected settings to be applied")
	}
	if got := fake.settings.MinWordSizefor1Typo.Get(); got != 5 {
		t.Errorf("expected minWordSizefor1Typo 5, got %d", got)
	}
	if got := fake.settings.MinWordSizefor2Typos.Get(); got != 10 {
		t.Errorf("expected minWordSizefor2Typos 10, got %d", got)
	}
}

func TestAlgoliaIndex_DeleteAndClear(t *testing.T) {
	fake := &fakeAlgolia{}
	idx := &AlgoliaIndex{api: fake, name: "art-assets"}

	if err := idx.DeleteRecords(context.Background()); err != nil {
		t.Fatalf("unexpected error for empty delete: %v", err)
	}
	if err := idx.DeleteRecords(context.Background(), "sp1a1", "sp1a2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.deleted) != 2 {
		t.Errorf("expected 2 deletions, got %v", fake.deleted)
	}
	if err := idx.Clear(context.Background()); err != nil || !fake.cleared {
		t.Errorf("expected clear, err=%v", err)
	}
}

func TestAlgoliaIndex_Search(t *testing.T) {
	fake := &fakeAlgolia{hits: `[{"objectID":"sp1a1","space_id":"sp1","asset_id":"a1","url":"http://x","thumb_url":"http://x?w=100","Labels":[{"Name":"Cat","Confidence":91.2}]}]`}
	idx := &AlgoliaIndex{api: fake, name: "art-assets"}

	got, err := idx.Search(context.Background(), "cat", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].AssetID != "a1" || got[0].Labels[0].Name != "Cat" {
		t.Errorf("unexpected hits: %+v", got)
	}
}
