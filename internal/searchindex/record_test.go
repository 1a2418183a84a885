package searchindex

import (
	"encoding/json"
	"testing"

	"github.com/fpang/asset-labeler/internal/labels"
)

func TestObjectID_Stable(t *testing.T) {
	if ObjectID("sp1", "a1") != ObjectID("sp1", "a1") {
		t.Fatal("expected identical object IDs for the same asset")
	}
	if got := ObjectID("sp1", "a1"); got != "sp1a1" {
		t.Errorf("expected sp1a1, got %s", got)
	}
}

func TestNewRecord(t *testing.T) {
	r := NewRecord("sp1", "a1", "http://img.example.com/a1.png", labels.Result{{Name: "Cat", Confidence: 91.2}})

	if r.ObjectID != "sp1a1" {
		t.Errorf("expected objectID sp1a1, got %s", r.ObjectID)
	}
	if r.ThumbURL != "http://img.example.com/a1.png?w=100" {
		t.Errorf("unexpected thumb URL: %s", r.ThumbURL)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"objectID", "space_id", "asset_id", "url", "thumb_url", "Labels"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("missing wire field %q in %s", key, data)
		}
	}
}

func TestNewRecord_NoLabels(t *testing.T) {
	r := NewRecord("sp1", "a1", "http://x", nil)
	data, _ := json.Marshal(r)
	var wire map[string]any
	json.Unmarshal(data, &wire)
	if l, ok := wire["Labels"].([]any); !ok || len(l) != 0 {
		t.Errorf("expected empty Labels array, got %v", wire["Labels"])
	}
}

func TestThumbnailURL(t *testing.T) {
	cases := map[string]string{
		"http://img/a.png?w=100":      "http://img/a.png?w=300",
		"http://img/a.png?fm=jpg&w=5": "http://img/a.png?fm=jpg&w=300",
		"http://img/a.png":            "http://img/a.png?w=300",
		"http://img/a.png?fm=jpg":     "http://img/a.png?fm=jpg&w=300",
	}
	for in, want := range cases {
		if got := ThumbnailURL(in, 300); got != want {
			t.Errorf("ThumbnailURL(%q) = %q, want %q", in, got, want)
		}
	}
}
