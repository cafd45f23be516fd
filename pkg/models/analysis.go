package models

import (
	"strings"
	"time"
)

// ContentKind identifies which variant of an AnalysisRequest is populated
type ContentKind string

const (
	ContentKindText  ContentKind = "text"
	ContentKindURL   ContentKind = "url"
	ContentKindMedia ContentKind = "media"
)

// MediaType is the coarse family of an uploaded file
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeVideo    MediaType = "video"
	MediaTypeDocument MediaType = "document"
	MediaTypeUnknown  MediaType = ""
)

// MediaTypeOf maps a MIME type to its media family.
// Parameters such as "; charset=utf-8" are ignored.
func MediaTypeOf(mimeType string) MediaType {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(mt, "audio/"):
		return MediaTypeAudio
	case strings.HasPrefix(mt, "video/"):
		return MediaTypeVideo
	case mt == "application/pdf":
		return MediaTypeDocument
	default:
		return MediaTypeUnknown
	}
}

// MediaPayload holds an uploaded file exactly as the client declared it
type MediaPayload struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
}

// Size returns the payload length in bytes
func (m *MediaPayload) Size() int64 {
	if m == nil {
		return 0
	}
	return int64(len(m.Data))
}

// AnalysisRequest is one unit of content to verify. Exactly one of
// Text, URL or Media is populated, matching Kind.
type AnalysisRequest struct {
	Kind  ContentKind   `json:"kind"`
	Text  string        `json:"text,omitempty"`
	URL   string        `json:"url,omitempty"`
	Media *MediaPayload `json:"media,omitempty"`
}

// Valid reports whether the request carries exactly one populated variant
// and that variant agrees with Kind.
func (r *AnalysisRequest) Valid() bool {
	if r == nil {
		return false
	}
	populated := 0
	if r.Text != "" {
		populated++
	}
	if r.URL != "" {
		populated++
	}
	if r.Media != nil && len(r.Media.Data) > 0 {
		populated++
	}
	if populated != 1 {
		return false
	}
	switch r.Kind {
	case ContentKindText:
		return r.Text != ""
	case ContentKindURL:
		return r.URL != ""
	case ContentKindMedia:
		return r.Media != nil && len(r.Media.Data) > 0
	default:
		return false
	}
}

// Summary describes the request without its payload
func (r *AnalysisRequest) Summary() *InputSummary {
	if r == nil {
		return nil
	}
	s := &InputSummary{Kind: r.Kind, Text: r.Text, URL: r.URL}
	if r.Media != nil {
		s.Filename = r.Media.Filename
		s.MimeType = r.Media.MimeType
		s.Size = r.Media.Size()
	}
	return s
}

// InputSummary is the payload-free view of the request currently held by a session
type InputSummary struct {
	Kind     ContentKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	URL      string      `json:"url,omitempty"`
	Filename string      `json:"filename,omitempty"`
	MimeType string      `json:"mime_type,omitempty"`
	Size     int64       `json:"size,omitempty"`
}

// VerificationResult is the mapped outcome of one provider call.
// It is passed by value and never mutated after creation.
type VerificationResult struct {
	Verdict   Verdict   `json:"verdict"`
	Score     float64   `json:"score"`
	Rationale string    `json:"rationale,omitempty"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}
