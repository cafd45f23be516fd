package repository

import (
	"html"
	"mime"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy drops every tag and skips script and style bodies
var pagePolicy = bluemonday.StrictPolicy()

// IsHTML reports whether a fetched MIME type is a web page
func IsHTML(mimeType string) bool {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// PageText strips markup from an HTML page and returns its visible text with
// whitespace collapsed, cut to at most maxRunes runes.
func PageText(page []byte, maxRunes int) string {
	text := html.UnescapeString(string(pagePolicy.SanitizeBytes(page)))
	text = strings.Join(strings.Fields(text), " ")

	if maxRunes > 0 {
		if r := []rune(text); len(r) > maxRunes {
			text = string(r[:maxRunes])
		}
	}
	return text
}
