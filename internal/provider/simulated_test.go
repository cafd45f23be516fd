package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/pkg/models"
)

func TestSimulatedVerdicts(t *testing.T) {
	tests := []struct {
		name string
		sub  Submission
		want models.Verdict
	}{
		{
			name: "benign text",
			sub:  Submission{Kind: models.ContentKindText, Text: "See you at lunch tomorrow"},
			want: models.VerdictAuthentic,
		},
		{
			name: "phishing text",
			sub:  Submission{Kind: models.ContentKindText, Text: "Urgent: verify your account now"},
			want: models.VerdictSuspicious,
		},
		{
			name: "lottery scam",
			sub: Submission{Kind: models.ContentKindText,
				Text: "WINNER!!! You have won a prize in our lottery. Send your bank password and pay with gift cards immediately"},
			want: models.VerdictFraudulent,
		},
		{
			name: "typo-squatted keywords",
			sub:  Submission{Kind: models.ContentKindText, Text: "URGENT: your acount was suspnded, confirm your pasword immediately"},
			want: models.VerdictFraudulent,
		},
		{
			name: "plain https url",
			sub:  Submission{Kind: models.ContentKindURL, URL: "https://example.com/about"},
			want: models.VerdictAuthentic,
		},
		{
			name: "credentials before an ip host",
			sub:  Submission{Kind: models.ContentKindURL, URL: "http://secure@192.168.4.20/bank/login?verify=1"},
			want: models.VerdictFraudulent,
		},
		{
			name: "ordinary photo",
			sub:  Submission{Kind: models.ContentKindMedia, Data: []byte{1}, MimeType: "image/jpeg", Filename: "holiday.jpg"},
			want: models.VerdictAuthentic,
		},
		{
			name: "renamed deepfake clip",
			sub:  Submission{Kind: models.ContentKindMedia, Data: []byte{1}, MimeType: "image/png", Filename: "deepfake_ceo.mp4"},
			want: models.VerdictSuspicious,
		},
	}

	p := NewSimulated(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := p.Submit(context.Background(), tt.sub)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Verdict, resp.Rationale)
			assert.GreaterOrEqual(t, resp.Score, 0.0)
			assert.LessOrEqual(t, resp.Score, 100.0)
			assert.NotEmpty(t, resp.Rationale)
		})
	}
}

func TestSimulatedIsDeterministic(t *testing.T) {
	p := NewSimulated(0)
	sub := Submission{Kind: models.ContentKindText, Text: "Click the link below to claim your reward today"}

	first, err := p.Submit(context.Background(), sub)
	require.NoError(t, err)
	second, err := p.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSimulatedUsesExtractedText(t *testing.T) {
	p := NewSimulated(0)
	plain := Submission{Kind: models.ContentKindMedia, Data: []byte{1}, MimeType: "image/png", Filename: "screenshot.png"}

	withoutText, err := p.Submit(context.Background(), plain)
	require.NoError(t, err)

	plain.ExtractedText = "Your account has been suspended. Confirm your password immediately"
	withText, err := p.Submit(context.Background(), plain)
	require.NoError(t, err)

	assert.Equal(t, models.VerdictAuthentic, withoutText.Verdict)
	assert.NotEqual(t, models.VerdictAuthentic, withText.Verdict)

	page := Submission{Kind: models.ContentKindURL, URL: "https://example.com/help"}
	clean, err := p.Submit(context.Background(), page)
	require.NoError(t, err)

	page.ExtractedText = plain.ExtractedText
	scored, err := p.Submit(context.Background(), page)
	require.NoError(t, err)
	assert.Greater(t, riskOf(scored), riskOf(clean))
}

// riskOf maps a response back onto the 0-100 risk scale
func riskOf(r *Response) float64 {
	if r.Verdict == models.VerdictAuthentic {
		return 100 - r.Score
	}
	return r.Score
}

func TestSimulatedUsesImageSignals(t *testing.T) {
	p := NewSimulated(0)
	sub := Submission{Kind: models.ContentKindMedia, Data: []byte{1}, MimeType: "image/png", Filename: "poster.png"}

	clean, err := p.Submit(context.Background(), sub)
	require.NoError(t, err)

	sub.ImageSignals = &models.ImageSignals{HasQRCode: true}
	withQR, err := p.Submit(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, 100.0, clean.Score)
	assert.Equal(t, models.VerdictAuthentic, withQR.Verdict)
	assert.Equal(t, 85.0, withQR.Score)
	assert.Contains(t, withQR.Rationale, "QR code")
}

func TestSimulatedHonoursContext(t *testing.T) {
	p := NewSimulated(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Submit(ctx, Submission{Kind: models.ContentKindText, Text: "hello"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProviderUnavail))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestKeywordHitsFuzzy(t *testing.T) {
	hits := keywordHits(tokenize("Pleese verfy your passw0rd"))
	assert.True(t, hits["verify"])
	assert.True(t, hits["password"])
	assert.False(t, hits["bank"])
}
