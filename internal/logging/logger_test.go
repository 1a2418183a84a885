package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStartupLogger_SkipsEmptyResources(t *testing.T) {
	s := NewStartupLogger("asset-lambda").
		ContentSpace("sp1", "").
		DynamoTable("runs", "").
		SearchIndex("algolia", "art-assets")

	if _, ok := s.resources["dynamoTables"]; ok {
		t.Error("expected empty table to be omitted")
	}
	if s.resources["contentful"]["space"] != "sp1" {
		t.Errorf("expected space recorded, got %v", s.resources["contentful"])
	}
	if _, ok := s.resources["contentful"]["environment"]; ok {
		t.Error("expected empty environment to be omitted")
	}
	if s.resources["searchIndex"]["algolia"] != "art-assets" {
		t.Errorf("unexpected search index resource %v", s.resources["searchIndex"])
	}
}
