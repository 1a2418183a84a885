package assets

import (
	"strings"
	"testing"
)

func TestRenderLabelRequestPrompt(t *testing.T) {
	got := RenderLabelRequestPrompt(20, 70)
	want := "List up to 20 labels for this image. Leave out labels below 70 confidence."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if got := RenderLabelRequestPrompt(10, 0); got != "List up to 10 labels for this image." {
		t.Errorf("zero confidence should omit the cutoff, got %q", got)
	}
}

func TestLabelSystemPromptEmbedded(t *testing.T) {
	if !strings.Contains(LabelSystemPrompt, `"Confidence"`) {
		t.Errorf("system prompt missing the response shape: %q", LabelSystemPrompt)
	}
}
