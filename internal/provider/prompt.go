package provider

import (
	"fmt"
	"strings"

	"github.com/anime-shed/veritas-go/pkg/models"
)

// DefaultSystemPrompt instructs LLM providers to answer in the parseable shape
const DefaultSystemPrompt = `You are a forensic content verification analyst.
Assess whether the submitted content is authentic, manipulated, AI-generated,
or part of a fraud or phishing attempt. Consider linguistic pressure tactics,
impersonation, inconsistent metadata, visual or audio artifacts and
generative patterns.

Respond with a single JSON object and nothing else:
{"verdict": "Authentic" | "Suspicious" | "Fraudulent",
 "score": <confidence in your verdict from 0 to 100>,
 "rationale": "<two or three sentences explaining the main signals>"}`

func systemPromptOrDefault(prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return DefaultSystemPrompt
	}
	return prompt
}

// userPrompt describes the submission in text. Media bytes travel separately.
func userPrompt(sub Submission) string {
	var b strings.Builder
	switch sub.Kind {
	case models.ContentKindURL:
		fmt.Fprintf(&b, "Verify the trustworthiness of this URL and what it likely points to:\n%s\n", sub.URL)
		if sub.ExtractedText != "" {
			fmt.Fprintf(&b, "Visible text of the page:\n%s\n", sub.ExtractedText)
		}
	case models.ContentKindMedia:
		fmt.Fprintf(&b, "Verify the attached %s file", models.MediaTypeOf(sub.MimeType))
		if sub.Filename != "" {
			fmt.Fprintf(&b, " named %q", sub.Filename)
		}
		fmt.Fprintf(&b, " (declared type %s, %d bytes).\n", sub.MimeType, len(sub.Data))
		if sub.ExtractedText != "" {
			fmt.Fprintf(&b, "Text recognised in the file:\n%s\n", sub.ExtractedText)
		}
		if notes := sub.ImageSignals.Notes(); len(notes) > 0 {
			fmt.Fprintf(&b, "Automated image checks: %s.\n", strings.Join(notes, ", "))
		}
	default:
		fmt.Fprintf(&b, "Verify the following message:\n%s\n", sub.Text)
	}
	return b.String()
}

// metadataOnlyPrompt is used when a provider cannot ingest the media bytes
func metadataOnlyPrompt(sub Submission) string {
	return userPrompt(sub) + "The file contents could not be attached; judge from the metadata only and prefer \"Suspicious\" when unsure.\n"
}
