package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/fpang/asset-labeler/internal/contentful"
)

func manyAssets(n int) []contentful.Asset {
	out := make([]contentful.Asset, n)
	for i := range out {
		id := fmt.Sprintf("a%d", i)
		out[i] = assetWithURL(id, "//img.example.com/"+id+".png", 100)
	}
	return out
}

func TestAssets_Pages(t *testing.T) {
	cms := &fakeCMS{assets: manyAssets(250)}
	p := New(Config{}, Deps{CMS: cms})

	n := 0
	for _, err := range p.Assets(context.Background(), "sp1", "env1") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n++
	}
	if n != 250 {
		t.Errorf("expected 250 assets, got %d", n)
	}
	want := []int{0, 100, 200}
	if fmt.Sprint(cms.listSkips) != fmt.Sprint(want) {
		t.Errorf("expected page requests at %v, got %v", want, cms.listSkips)
	}
}

func TestAssets_ExactMultiple(t *testing.T) {
	cms := &fakeCMS{assets: manyAssets(200)}
	p := New(Config{}, Deps{CMS: cms})

	for range p.Assets(context.Background(), "sp1", "env1") {
	}
	if len(cms.listSkips) != 2 {
		t.Errorf("expected 2 page requests, got %v", cms.listSkips)
	}
}

func TestAssets_EarlyBreak(t *testing.T) {
	cms := &fakeCMS{assets: manyAssets(250)}
	p := New(Config{}, Deps{CMS: cms})

	n := 0
	for range p.Assets(context.Background(), "sp1", "env1") {
		n++
		if n == 5 {
			break
		}
	}
	if len(cms.listSkips) != 1 {
		t.Errorf("expected listing to stop after first page, got %v", cms.listSkips)
	}
}

func TestAssets_EmptyPageStops(t *testing.T) {
	// Total overstates the items actually returned.
	cms := &fakeCMS{assets: manyAssets(100), total: 500}
	p := New(Config{}, Deps{CMS: cms})

	for range p.Assets(context.Background(), "sp1", "env1") {
	}
	if len(cms.listSkips) != 2 {
		t.Errorf("expected stop at first empty page, got %v", cms.listSkips)
	}
}

func TestAssets_PageError(t *testing.T) {
	cms := &fakeCMS{assets: manyAssets(250), failAtSkip: map[int]bool{100: true}}
	p := New(Config{}, Deps{CMS: cms})

	n, errs := 0, 0
	for _, err := range p.Assets(context.Background(), "sp1", "env1") {
		if err != nil {
			errs++
			continue
		}
		n++
	}
	if n != 100 || errs != 1 {
		t.Errorf("expected 100 assets then 1 error, got %d assets and %d errors", n, errs)
	}
}
