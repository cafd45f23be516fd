package models

import (
	"strings"
	"unicode/utf8"
)

const (
	// HistoryDisplayLimit is the number of history items shown to a user
	HistoryDisplayLimit = 3

	// PreviewMaxRunes bounds the text preview stored on a history item
	PreviewMaxRunes = 20
)

// HistoryItem wraps a completed VerificationResult for display
type HistoryItem struct {
	ID      string             `json:"id"`
	Preview string             `json:"preview"`
	Kind    ContentKind        `json:"kind"`
	Result  VerificationResult `json:"result"`
}

// PreviewFor builds the short display label of a request: the filename
// for media, otherwise a truncated prefix of the text or URL.
func PreviewFor(req *AnalysisRequest) string {
	if req == nil {
		return ""
	}
	switch req.Kind {
	case ContentKindMedia:
		if req.Media != nil && req.Media.Filename != "" {
			return req.Media.Filename
		}
		return "uploaded file"
	case ContentKindURL:
		return Truncate(req.URL, PreviewMaxRunes*2)
	default:
		return Truncate(req.Text, PreviewMaxRunes)
	}
}

// Truncate returns the first max runes of s followed by "..." when s is longer
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "..."
}
