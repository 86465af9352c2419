package catalog

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	descMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	descPolicy   = bluemonday.UGCPolicy()
)

// RenderDescription converts a product's markdown description to sanitized
// HTML suitable for embedding in the shop page.
func RenderDescription(md string) (template.HTML, error) {
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := descMarkdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return template.HTML(descPolicy.SanitizeBytes(buf.Bytes())), nil
}

// SanitizeNote strips all markup from buyer-entered free text (order notes),
// keeping plain text only.
func SanitizeNote(raw string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(raw))
}
