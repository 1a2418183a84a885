package jsonutil

import "testing"

func TestParseJSON_Fenced(t *testing.T) {
	raw := "```json\n[{\"Name\":\"Cat\"}]\n```"
	got, err := ParseJSON[[]map[string]string](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0]["Name"] != "Cat" {
		t.Errorf("unexpected result: %v", got)
	}
}

func TestParseJSON_Prose(t *testing.T) {
	raw := `Here you go: {"a": 1} hope that helps`
	got, err := ParseJSON[map[string]int](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["a"] != 1 {
		t.Errorf("expected a=1, got %v", got)
	}
}

func TestParseJSON_NoJSON(t *testing.T) {
	if _, err := ParseJSON[[]string]("no labels here"); err == nil {
		t.Fatal("expected error")
	}
}
