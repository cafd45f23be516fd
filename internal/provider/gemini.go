package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/pkg/models"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-2.5-flash"
	geminiMaxTokens    = 1024

	// maxProviderBody bounds how much of a provider reply is read
	maxProviderBody = 4 << 20
)

func init() {
	Register("gemini", newGemini, "google")
}

type geminiProvider struct {
	apiKey       string
	model        string
	baseURL      string
	systemPrompt string
	httpClient   *http.Client
}

func newGemini(cfg FactoryConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("gemini: API key not configured")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &geminiProvider{
		apiKey:       cfg.APIKey,
		model:        normalizeGeminiModel(cfg.Model),
		baseURL:      strings.TrimRight(orString(cfg.BaseURL, geminiBaseURL), "/"),
		systemPrompt: systemPromptOrDefault(cfg.SystemPrompt),
		httpClient:   client,
	}, nil
}

func (g *geminiProvider) Name() string { return "gemini" }

func (g *geminiProvider) Submit(ctx context.Context, sub Submission) (*Response, error) {
	payload, err := json.Marshal(g.buildRequest(sub))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode gemini request", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build gemini request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError("gemini request failed", eris.Wrap(err, "gemini: send"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError("failed to read gemini response", eris.Wrap(err, "gemini: read body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewProviderUnavailableError(
			fmt.Sprintf("gemini returned HTTP %d", resp.StatusCode), nil,
		).WithDetails(truncateForLog(body))
	}

	var result generateContentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.NewMalformedResponseError("gemini response envelope is not valid JSON", err)
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, apperrors.NewMalformedResponseError("gemini blocked the request: "+result.PromptFeedback.BlockReason, nil)
	}

	text := result.text()
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewMalformedResponseError("gemini returned no text", nil)
	}

	return ParseResponse([]byte(text))
}

func (g *geminiProvider) buildRequest(sub Submission) generateContentRequest {
	parts := []geminiPart{{Text: userPrompt(sub)}}
	if sub.Kind == models.ContentKindMedia && len(sub.Data) > 0 {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: sub.MimeType,
			Data:     base64.StdEncoding.EncodeToString(sub.Data),
		}})
	}

	return generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: g.systemPrompt}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0.1,
			MaxOutputTokens:  geminiMaxTokens,
			ResponseMimeType: "application/json",
		},
	}
}

type generateContentRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// text joins the parts of the first candidate that carries any text
func (r generateContentResponse) text() string {
	for _, candidate := range r.Candidates {
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			b.WriteString(part.Text)
		}
		if strings.TrimSpace(b.String()) != "" {
			return b.String()
		}
	}
	return ""
}

func normalizeGeminiModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		model = geminiDefaultModel
	}
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func truncateForLog(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
