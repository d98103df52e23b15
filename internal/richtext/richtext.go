// Package richtext turns product copy written in Markdown into sanitized HTML.
package richtext

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	once     sync.Once
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
)

func setup() {
	markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))
	policy = bluemonday.UGCPolicy()
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
}

// Render converts Markdown to HTML and strips anything outside the UGC policy. Invalid input
// renders as escaped text.
func Render(src string) template.HTML {
	once.Do(setup)
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}

// Plain returns the sanitized text content only, for listing cards and meta descriptions.
func Plain(src string) string {
	once.Do(setup)
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return src
	}
	return string(bytes.TrimSpace(bluemonday.StrictPolicy().SanitizeBytes(buf.Bytes())))
}
