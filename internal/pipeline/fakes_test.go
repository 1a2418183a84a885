package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/fpang/asset-labeler/internal/contentful"
	"github.com/fpang/asset-labeler/internal/labels"
	"github.com/fpang/asset-labeler/internal/searchindex"
)

// pngBytes returns a tiny valid PNG.
func pngBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func assetWithURL(id, url string, size int64) contentful.Asset {
	a := contentful.Asset{Sys: contentful.Sys{ID: id, Type: "Asset"}}
	if url != "" {
		a.Fields.File = map[string]contentful.File{
			contentful.DefaultLocale: {URL: url, Details: &contentful.FileDetails{Size: size}},
		}
	}
	return a
}

// fakeCMS serves GetAsset from a scripted sequence and ListAssets from a
// fixed asset list.
type fakeCMS struct {
	mu        sync.Mutex
	getCalls  int
	responses []*contentful.Asset
	getErr    error

	assets     []contentful.Asset
	total      int
	listSkips  []int
	failAtSkip map[int]bool
}

func (f *fakeCMS) GetAsset(_ context.Context, _, _, _ string) (*contentful.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	i := f.getCalls - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeCMS) ListAssets(_ context.Context, _, _ string, skip, limit int) (*contentful.AssetPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listSkips = append(f.listSkips, skip)
	if f.failAtSkip[skip] {
		return nil, fmt.Errorf("cms unavailable at skip %d", skip)
	}
	total := f.total
	if total == 0 {
		total = len(f.assets)
	}
	end := skip + limit
	if end > len(f.assets) {
		end = len(f.assets)
	}
	var items []contentful.Asset
	if skip < end {
		items = f.assets[skip:end]
	}
	return &contentful.AssetPage{Items: items, Total: total, Skip: skip, Limit: limit}, nil
}

// fakeFetcher serves fixed bytes per URL.
type fakeFetcher struct {
	mu    sync.Mutex
	body  map[string][]byte
	err   map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, maxBytes int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err := f.err[url]; err != nil {
		return nil, err
	}
	b, ok := f.body[url]
	if !ok {
		b = pngBytes()
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("fetch %s: %w", url, ErrTooLarge)
	}
	return b, nil
}

type fakeDetector struct {
	mu     sync.Mutex
	calls  int
	result labels.Result
	err    error
}

func (f *fakeDetector) DetectLabels(context.Context, []byte) (labels.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

// fakeObjectDetector also labels S3 objects in place.
type fakeObjectDetector struct {
	fakeDetector
	s3Calls []string
}

func (f *fakeObjectDetector) DetectS3Object(_ context.Context, bucket, key string) (labels.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s3Calls = append(f.s3Calls, bucket+"/"+key)
	return f.result, f.err
}

type fakeIndex struct {
	mu      sync.Mutex
	records map[string]searchindex.IndexRecord
	saves   int
	deleted []string
	typo    *searchindex.TypoSettings
	cleared bool
	calls   []string
	saveErr error
	typoErr error
	failFor map[string]bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: map[string]searchindex.IndexRecord{}, failFor: map[string]bool{}}
}

func (f *fakeIndex) SaveRecord(_ context.Context, r searchindex.IndexRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "save")
	if f.saveErr != nil || f.failFor[r.ObjectID] {
		return fmt.Errorf("index unavailable")
	}
	f.saves++
	f.records[r.ObjectID] = r
	return nil
}

func (f *fakeIndex) DeleteRecords(_ context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	for _, id := range ids {
		delete(f.records, id)
	}
	return nil
}

func (f *fakeIndex) ConfigureTypoTolerance(_ context.Context, s searchindex.TypoSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "typo")
	f.typo = &s
	return f.typoErr
}

func (f *fakeIndex) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "clear")
	f.cleared = true
	f.records = map[string]searchindex.IndexRecord{}
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]searchindex.IndexRecord, error) {
	return nil, nil
}

type fakeObjects struct {
	size      int64
	data      []byte
	sizeErr   error
	downloads int
}

func (f *fakeObjects) Size(context.Context, string, string) (int64, error) {
	return f.size, f.sizeErr
}

func (f *fakeObjects) Download(_ context.Context, _, _ string, maxBytes int64) ([]byte, error) {
	f.downloads++
	if int64(len(f.data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return f.data, nil
}

type fakeRuns struct {
	summaries []*Summary
}

func (f *fakeRuns) RecordRun(_ context.Context, s *Summary) error {
	f.summaries = append(f.summaries, s)
	return nil
}

func (f *fakeRuns) RunCompleted(_ context.Context, s *Summary) error {
	f.summaries = append(f.summaries, s)
	return nil
}

// newTestPipeline wires fakes and records every sleep instead of waiting.
func newTestPipeline(cfg Config, deps Deps) (*Pipeline, *[]time.Duration) {
	p := New(cfg, deps)
	var slept []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return p, &slept
}
