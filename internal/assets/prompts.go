// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// LabelSystemPrompt instructs a vision model to answer with a JSON label list.
//
//go:embed prompts/label-system.txt
var LabelSystemPrompt string

//go:embed prompts/label-request.txt
var labelRequestTemplate string

// Pre-parsed templates for efficiency. template.Must panics on malformed templates,
// catching errors at program startup rather than at call time.
var labelRequestTmpl = template.Must(template.New("label-request").Parse(labelRequestTemplate))

// LabelRequestData holds the bounds injected into the label request.
type LabelRequestData struct {
	MaxLabels     int
	MinConfidence float64
}

// RenderLabelRequestPrompt renders the per-image label request.
func RenderLabelRequestPrompt(maxLabels int, minConfidence float64) string {
	var buf bytes.Buffer
	// Template execution errors are not expected with this simple template,
	// but we handle them gracefully by returning whatever was rendered.
	_ = labelRequestTmpl.Execute(&buf, LabelRequestData{MaxLabels: maxLabels, MinConfidence: minConfidence})
	return strings.TrimSpace(buf.String())
}
