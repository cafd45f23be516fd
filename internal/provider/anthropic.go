package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/pkg/models"
)

const (
	anthropicDefaultModel = "claude-sonnet-4-5-20250929"
	anthropicMaxTokens    = 1024
)

// image types the Messages API accepts as base64 blocks
var anthropicImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

func init() {
	Register("anthropic", newAnthropic, "claude")
}

type anthropicProvider struct {
	client       sdk.Client
	model        string
	systemPrompt string
}

func newAnthropic(cfg FactoryConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("anthropic: API key not configured")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &anthropicProvider{
		client:       sdk.NewClient(opts...),
		model:        orString(cfg.Model, anthropicDefaultModel),
		systemPrompt: systemPromptOrDefault(cfg.SystemPrompt),
	}, nil
}

func (a *anthropicProvider) Name() string { return "anthropic" }

func (a *anthropicProvider) Submit(ctx context.Context, sub Submission) (*Response, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		System:    []sdk.TextBlockParam{{Text: a.systemPrompt}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(contentBlocks(sub)...)},
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		unavailable := apperrors.NewProviderUnavailableError("anthropic request failed", eris.Wrap(err, "anthropic: create message"))
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			unavailable = apperrors.NewProviderUnavailableError(
				fmt.Sprintf("anthropic returned HTTP %d", apiErr.StatusCode), eris.Wrap(err, "anthropic: create message"),
			)
		}
		return nil, unavailable
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, apperrors.NewMalformedResponseError("anthropic returned no text", nil)
	}

	return ParseResponse([]byte(text.String()))
}

// contentBlocks attaches media the Messages API understands and falls back
// to a metadata description for everything else.
func contentBlocks(sub Submission) []sdk.ContentBlockParamUnion {
	if sub.Kind != models.ContentKindMedia || len(sub.Data) == 0 {
		return []sdk.ContentBlockParamUnion{sdk.NewTextBlock(userPrompt(sub))}
	}

	mime := strings.ToLower(strings.TrimSpace(sub.MimeType))
	encoded := base64.StdEncoding.EncodeToString(sub.Data)

	switch {
	case anthropicImageTypes[mime]:
		return []sdk.ContentBlockParamUnion{
			sdk.NewImageBlockBase64(mime, encoded),
			sdk.NewTextBlock(userPrompt(sub)),
		}
	case mime == "application/pdf":
		return []sdk.ContentBlockParamUnion{
			sdk.NewDocumentBlock(sdk.Base64PDFSourceParam{Data: encoded}),
			sdk.NewTextBlock(userPrompt(sub)),
		}
	default:
		return []sdk.ContentBlockParamUnion{sdk.NewTextBlock(metadataOnlyPrompt(sub))}
	}
}
