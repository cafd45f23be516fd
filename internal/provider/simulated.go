package provider

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/pkg/models"
)

const (
	fraudulentThreshold = 60
	suspiciousThreshold = 25

	templateMatchThreshold = 0.6
)

// scam vocabulary with per-hit weight
var scamKeywords = map[string]float64{
	"urgent":      8,
	"immediately": 8,
	"verify":      7,
	"suspended":   12,
	"password":    12,
	"account":     5,
	"login":       7,
	"winner":      12,
	"lottery":     15,
	"prize":       10,
	"bitcoin":     10,
	"crypto":      8,
	"giftcard":    15,
	"wire":        8,
	"refund":      8,
	"invoice":     6,
	"confirm":     6,
	"click":       6,
	"bank":        6,
	"ssn":         15,
	"otp":         12,
	"inheritance": 15,
}

// common phrasing of known scam messages
var scamTemplates = [][]string{
	strings.Fields("verify your account now"),
	strings.Fields("your account has been suspended"),
	strings.Fields("you have won a prize"),
	strings.Fields("click the link below"),
	strings.Fields("confirm your password"),
	strings.Fields("send the verification code"),
	strings.Fields("pay with gift cards"),
	strings.Fields("claim your reward today"),
}

var manipulationHints = []string{"fake", "deepfake", "edited", "faceswap", "generated", "synthetic", "photoshop", "morphed"}

var suspiciousTLDs = []string{".zip", ".xyz", ".top", ".click", ".country", ".gq", ".tk", ".ml"}

func init() {
	Register("simulated", newSimulated, "mock", "demo")
}

type simulatedProvider struct {
	delay time.Duration
}

func newSimulated(cfg FactoryConfig) (Provider, error) {
	return NewSimulated(cfg.Delay), nil
}

// NewSimulated returns the offline heuristic provider
func NewSimulated(delay time.Duration) Provider {
	if delay < 0 {
		delay = 0
	}
	return &simulatedProvider{delay: delay}
}

func (s *simulatedProvider) Name() string { return "simulated" }

func (s *simulatedProvider) Submit(ctx context.Context, sub Submission) (*Response, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, apperrors.NewProviderUnavailableError("simulated analysis interrupted", ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, apperrors.NewProviderUnavailableError("simulated analysis interrupted", err)
	}

	var sig signals
	switch sub.Kind {
	case models.ContentKindURL:
		sig.scoreURL(sub.URL)
		if sub.ExtractedText != "" {
			sig.scoreText(sub.ExtractedText)
		}
	case models.ContentKindMedia:
		sig.scoreMedia(sub)
	default:
		sig.scoreText(sub.Text)
	}
	return sig.response(), nil
}

type signals struct {
	risk    float64
	reasons []string
}

func (s *signals) add(weight float64, reason string) {
	s.risk += weight
	s.reasons = append(s.reasons, reason)
}

func (s *signals) scoreText(text string) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return
	}

	hits := keywordHits(tokens)
	for _, kw := range sortedKeys(hits) {
		s.add(scamKeywords[kw], fmt.Sprintf("scam keyword %q", kw))
	}

	if sim, tpl := bestTemplateMatch(tokens); sim >= templateMatchThreshold {
		s.add(25*sim, fmt.Sprintf("resembles known scam phrasing %q", strings.Join(tpl, " ")))
	}

	if ratio := upperRatio(text); ratio > 0.5 && len([]rune(text)) > 12 {
		s.add(8, "mostly upper-case text")
	}
	if strings.Count(text, "!") >= 3 {
		s.add(6, "excessive exclamation marks")
	}
}

func (s *signals) scoreURL(raw string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		u, err = url.Parse("http://" + strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			s.add(40, "URL cannot be parsed")
			return
		}
	}

	host := strings.ToLower(u.Hostname())
	if !strings.EqualFold(u.Scheme, "https") {
		s.add(10, "connection is not encrypted")
	}
	if net.ParseIP(host) != nil {
		s.add(25, "host is a raw IP address")
	}
	if u.User != nil || strings.Contains(raw, "@") {
		s.add(25, "URL embeds credentials or an @ redirect")
	}
	if strings.Contains(host, "xn--") {
		s.add(20, "punycode host name")
	}
	if strings.Count(host, ".") >= 4 {
		s.add(10, "deeply nested subdomains")
	}
	if strings.Count(host, "-") >= 3 {
		s.add(8, "many hyphens in host name")
	}
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			s.add(15, fmt.Sprintf("high-risk top level domain %s", tld))
			break
		}
	}

	hits := keywordHits(tokenize(host + " " + u.Path + " " + u.RawQuery))
	for _, kw := range sortedKeys(hits) {
		s.add(scamKeywords[kw]/2, fmt.Sprintf("URL contains %q", kw))
	}
}

func (s *signals) scoreMedia(sub Submission) {
	name := strings.ToLower(sub.Filename)
	for _, hint := range manipulationHints {
		if strings.Contains(name, hint) {
			s.add(30, fmt.Sprintf("file name suggests manipulation (%q)", hint))
			break
		}
	}
	if ext := extensionOf(name); ext != "" && !extensionMatches(ext, sub.MimeType) {
		s.add(20, fmt.Sprintf("extension .%s does not match declared type %s", ext, sub.MimeType))
	}
	if sub.ExtractedText != "" {
		s.scoreText(sub.ExtractedText)
	}
	if sig := sub.ImageSignals; sig != nil {
		if sig.HasQRCode {
			s.add(15, "image contains a QR code")
		}
		if sig.Blurry && sig.Oversaturated {
			s.add(10, "image is blurry and oversaturated")
		}
	}
}

func (s *signals) response() *Response {
	risk := math.Min(100, math.Round(s.risk))

	var verdict models.Verdict
	var score float64
	switch {
	case risk >= fraudulentThreshold:
		verdict, score = models.VerdictFraudulent, risk
	case risk >= suspiciousThreshold:
		verdict, score = models.VerdictSuspicious, risk
	default:
		verdict, score = models.VerdictAuthentic, 100-risk
	}

	rationale := "No common fraud indicators were found."
	if len(s.reasons) > 0 {
		rationale = "Signals: " + strings.Join(s.reasons, "; ") + "."
	}
	return &Response{Verdict: verdict, Score: score, Rationale: rationale}
}

// keywordHits matches tokens against the scam vocabulary allowing one edit
// for words of five or more letters.
func keywordHits(tokens []string) map[string]bool {
	hits := map[string]bool{}
	joined := strings.Join(tokens, "")
	for kw := range scamKeywords {
		if len(kw) >= 8 && strings.Contains(joined, kw) {
			hits[kw] = true
			continue
		}
		for _, tok := range tokens {
			if tok == kw {
				hits[kw] = true
				break
			}
			if len(kw) >= 5 && abs(len(tok)-len(kw)) <= 1 && levenshtein.Distance(tok, kw) <= 1 {
				hits[kw] = true
				break
			}
		}
	}
	return hits
}

// bestTemplateMatch slides each template over the tokens and returns
// 1-WER of the closest window.
func bestTemplateMatch(tokens []string) (float64, []string) {
	best := 0.0
	var bestTpl []string
	for _, tpl := range scamTemplates {
		n := len(tpl)
		if len(tokens) < n {
			if sim := similarity(tpl, tokens); sim > best {
				best, bestTpl = sim, tpl
			}
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			if sim := similarity(tpl, tokens[i:i+n]); sim > best {
				best, bestTpl = sim, tpl
			}
		}
	}
	return best, bestTpl
}

func similarity(reference, candidate []string) float64 {
	rate, _ := wer.WER(reference, candidate)
	return math.Max(0, 1-rate)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func upperRatio(text string) float64 {
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

func extensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}

var extensionFamilies = map[string]models.MediaType{
	"jpg": models.MediaTypeImage, "jpeg": models.MediaTypeImage, "png": models.MediaTypeImage,
	"gif": models.MediaTypeImage, "webp": models.MediaTypeImage, "bmp": models.MediaTypeImage,
	"mp3": models.MediaTypeAudio, "wav": models.MediaTypeAudio, "ogg": models.MediaTypeAudio,
	"m4a": models.MediaTypeAudio, "flac": models.MediaTypeAudio,
	"mp4": models.MediaTypeVideo, "mov": models.MediaTypeVideo, "webm": models.MediaTypeVideo,
	"avi": models.MediaTypeVideo, "mkv": models.MediaTypeVideo,
	"pdf": models.MediaTypeDocument,
}

// extensionMatches is lenient: unknown extensions never count against a file
func extensionMatches(ext, mimeType string) bool {
	family, known := extensionFamilies[ext]
	if !known {
		return true
	}
	return family == models.MediaTypeOf(mimeType)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
