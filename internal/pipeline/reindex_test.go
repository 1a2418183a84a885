package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fpang/asset-labeler/internal/contentful"
	"github.com/fpang/asset-labeler/internal/labels"
)

func TestReindexAll_IsolatesFailures(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			idx := newFakeIndex()
			idx.failFor["sp1a5"] = true
			cms := &fakeCMS{assets: manyAssets(10)}
			p := New(Config{Concurrency: concurrency}, Deps{
				CMS:      cms,
				Fetcher:  &fakeFetcher{},
				Detector: &fakeDetector{result: labels.Result{{Name: "Cat", Confidence: 90}}},
				Index:    idx,
			})

			s, err := p.ReindexAll(context.Background(), "sp1", "env1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Indexed != 9 || s.Failed != 1 {
				t.Errorf("expected 9 indexed and 1 failed, got %d and %d", s.Indexed, s.Failed)
			}
			if len(s.Outcomes) != 10 {
				t.Fatalf("expected 10 outcomes, got %d", len(s.Outcomes))
			}
			for i, o := range s.Outcomes {
				if o.AssetID != fmt.Sprintf("a%d", i) {
					t.Errorf("outcome %d out of listing order: %s", i, o.AssetID)
				}
			}
			if s.Outcomes[5].Status != StatusFailed || s.Outcomes[5].Error == "" {
				t.Errorf("expected a5 failed with error, got %+v", s.Outcomes[5])
			}
			if len(idx.records) != 9 {
				t.Errorf("expected 9 records, got %d", len(idx.records))
			}
		})
	}
}

func TestReindexAll_Classification(t *testing.T) {
	big := make([]byte, 300)
	cms := &fakeCMS{assets: []contentful.Asset{
		assetWithURL("nourl", "", 0),
		assetWithURL("huge", "//img/huge.png", 201),
		assetWithURL("bigbody", "//img/bigbody.png", 0),
		assetWithURL("ok", "//img/ok.png", 10),
		assetWithURL("broken", "//img/broken.png", 10),
	}}
	fetcher := &fakeFetcher{
		body: map[string][]byte{"https://img/bigbody.png": big},
		err:  map[string]error{"https://img/broken.png": errors.New("connection reset")},
	}
	det := &fakeDetector{result: labels.Result{{Name: "Dog", Confidence: 80}}}
	idx := newFakeIndex()
	// huge is rejected on its reported size, bigbody once downloaded.
	p := New(Config{MaxImageBytes: 200}, Deps{CMS: cms, Fetcher: fetcher, Detector: det, Index: idx})

	s, err := p.ReindexAll(context.Background(), "sp1", "env1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Status{StatusSkippedNoURL, StatusSkippedTooLarge, StatusSkippedTooLarge, StatusIndexed, StatusFailed}
	for i, o := range s.Outcomes {
		if o.Status != want[i] {
			t.Errorf("%s: expected %s, got %s (%s)", o.AssetID, want[i], o.Status, o.Error)
		}
	}
	if s.SkippedNoURL != 1 || s.SkippedTooLarge != 2 || s.Indexed != 1 || s.Failed != 1 {
		t.Errorf("unexpected tallies: %+v", s)
	}
	for _, u := range fetcher.calls {
		if u == "https://img/huge.png" {
			t.Error("oversize asset by reported size must not be downloaded")
		}
	}
	if det.calls != 1 {
		t.Errorf("expected detector called once, got %d", det.calls)
	}
	if rec := idx.records["sp1ok"]; rec.URL != "https://img/ok.png" {
		t.Errorf("expected https URL on batch record, got %q", rec.URL)
	}
}

func TestReindexAll_ConfiguresTypoBeforeListing(t *testing.T) {
	idx := newFakeIndex()
	p := New(Config{}, Deps{CMS: &fakeCMS{assets: manyAssets(1)}, Fetcher: &fakeFetcher{}, Detector: &fakeDetector{}, Index: idx})

	if _, err := p.ReindexAll(context.Background(), "sp1", "env1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.calls) < 1 || idx.calls[0] != "typo" {
		t.Errorf("expected typo configuration first, got %v", idx.calls)
	}
	if idx.typo.MinWordSizeFor1Typo != 5 || idx.typo.MinWordSizeFor2Typos != 10 {
		t.Errorf("unexpected typo settings %+v", idx.typo)
	}
	if idx.cleared {
		t.Error("additive mode must not clear the index")
	}
}

func TestReindex_Destructive(t *testing.T) {
	idx := newFakeIndex()
	p := New(Config{}, Deps{CMS: &fakeCMS{assets: manyAssets(2)}, Fetcher: &fakeFetcher{}, Detector: &fakeDetector{}, Index: idx})

	s, err := p.Reindex(context.Background(), "sp1", "env1", ModeDestructive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.calls[0] != "clear" || idx.calls[1] != "typo" {
		t.Errorf("expected clear then typo, got %v", idx.calls)
	}
	if s.Mode != ModeDestructive {
		t.Errorf("expected destructive mode in summary, got %s", s.Mode)
	}
}

func TestReindexAll_PageErrorReturnsPartialSummary(t *testing.T) {
	runs := &fakeRuns{}
	cms := &fakeCMS{assets: manyAssets(150), failAtSkip: map[int]bool{100: true}}
	p := New(Config{}, Deps{CMS: cms, Fetcher: &fakeFetcher{}, Detector: &fakeDetector{}, Index: newFakeIndex(), Runs: runs})

	s, err := p.ReindexAll(context.Background(), "sp1", "env1")
	if err == nil {
		t.Fatal("expected page error")
	}
	var ce *CollaboratorError
	if !errors.As(err, &ce) || ce.Op != "list assets" {
		t.Errorf("expected list assets CollaboratorError, got %v", err)
	}
	if s == nil || s.Indexed != 100 || s.Aborted == "" {
		t.Errorf("expected partial summary with 100 indexed, got %+v", s)
	}
	if len(runs.summaries) != 1 {
		t.Errorf("expected aborted run to be recorded, got %d", len(runs.summaries))
	}
}

func TestReindexAll_RecordsAndNotifies(t *testing.T) {
	runs := &fakeRuns{}
	notifier := &fakeRuns{}
	p := New(Config{}, Deps{
		CMS: &fakeCMS{assets: manyAssets(3)}, Fetcher: &fakeFetcher{}, Detector: &fakeDetector{},
		Index: newFakeIndex(), Runs: runs, Notifier: notifier,
	})

	s, err := p.ReindexAll(context.Background(), "sp1", "env1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.RunID == "" {
		t.Error("expected a run ID")
	}
	if len(runs.summaries) != 1 || runs.summaries[0] != s {
		t.Error("expected summary recorded")
	}
	if len(notifier.summaries) != 1 {
		t.Error("expected run completion notified")
	}
}

func TestReindexAll_TypoErrorAborts(t *testing.T) {
	idx := newFakeIndex()
	idx.typoErr = errors.New("forbidden")
	cms := &fakeCMS{assets: manyAssets(3)}
	p := New(Config{}, Deps{CMS: cms, Detector: &fakeDetector{}, Index: idx})

	if _, err := p.ReindexAll(context.Background(), "sp1", "env1"); err == nil {
		t.Fatal("expected error")
	}
	if len(cms.listSkips) != 0 {
		t.Errorf("expected no listing after settings failure, got %v", cms.listSkips)
	}
}

func TestWithConfig(t *testing.T) {
	p := New(Config{Concurrency: 1}, Deps{CMS: &fakeCMS{}, Index: newFakeIndex(), Detector: &fakeDetector{}})

	q := p.WithConfig(Config{Concurrency: 8})
	if q.Config().Concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", q.Config().Concurrency)
	}
	if p.Config().Concurrency != 1 {
		t.Errorf("receiver must keep concurrency 1, got %d", p.Config().Concurrency)
	}
	if q.Config().PageSize != DefaultPageSize {
		t.Errorf("expected defaults applied, got page size %d", q.Config().PageSize)
	}
}
