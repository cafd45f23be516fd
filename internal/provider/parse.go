package provider

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/pkg/models"
)

type wireVerdict struct {
	Verdict   *string  `json:"verdict"`
	Score     *float64 `json:"score"`
	Rationale *string  `json:"rationale"`
}

// ParseResponse strictly decodes a provider's JSON answer. Markdown code
// fences and prose around the JSON object are tolerated; missing or
// mistyped fields are not.
func ParseResponse(raw []byte) (*Response, error) {
	body := extractJSONObject(raw)
	if len(body) == 0 {
		return nil, apperrors.NewMalformedResponseError("provider response contains no JSON object", nil)
	}

	var w wireVerdict
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&w); err != nil {
		return nil, apperrors.NewMalformedResponseError("provider response is not valid JSON", err)
	}

	if w.Verdict == nil || strings.TrimSpace(*w.Verdict) == "" {
		return nil, apperrors.NewMalformedResponseError("provider response is missing verdict", nil)
	}
	verdict, err := models.ParseVerdict(*w.Verdict)
	if err != nil {
		return nil, apperrors.NewMalformedResponseError("provider response has an unknown verdict", err)
	}

	if w.Score == nil {
		return nil, apperrors.NewMalformedResponseError("provider response is missing score", nil)
	}
	if math.IsNaN(*w.Score) || math.IsInf(*w.Score, 0) {
		return nil, apperrors.NewMalformedResponseError("provider response has a non-finite score", nil)
	}

	resp := &Response{Verdict: verdict, Score: *w.Score}
	if w.Rationale != nil {
		resp.Rationale = strings.TrimSpace(*w.Rationale)
	}
	return resp, nil
}

func extractJSONObject(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil
	}
	return []byte(s[start : end+1])
}
