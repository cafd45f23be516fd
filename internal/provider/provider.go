// Package provider contains the verification providers the orchestrator
// delegates to, plus the strict parser shared by the LLM-backed ones.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anime-shed/veritas-go/pkg/models"
)

// Submission is the opaque content handed to a provider
type Submission struct {
	Kind     models.ContentKind
	Text     string
	URL      string
	Data     []byte
	MimeType string
	Filename string

	// ExtractedText is OCR output for image media or the visible text of a
	// resolved web page, when available
	ExtractedText string

	// ImageSignals are pixel measurements for image media, when available
	ImageSignals *models.ImageSignals
}

// SubmissionFromRequest copies an AnalysisRequest into a Submission
func SubmissionFromRequest(req *models.AnalysisRequest) Submission {
	sub := Submission{Kind: req.Kind, Text: req.Text, URL: req.URL}
	if req.Media != nil {
		sub.Data = req.Media.Data
		sub.MimeType = req.Media.MimeType
		sub.Filename = req.Media.Filename
	}
	return sub
}

// Response is a provider verdict after strict parsing. Score is reported
// as the provider gave it; clamping happens in the orchestrator.
type Response struct {
	Verdict   models.Verdict
	Score     float64
	Rationale string
}

// Provider performs the actual authenticity judgment
type Provider interface {
	Name() string
	Submit(ctx context.Context, sub Submission) (*Response, error)
}

// FactoryConfig captures the inputs required to construct a provider
type FactoryConfig struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	SystemPrompt string
	Timeout      time.Duration
	Delay        time.Duration
	HTTPClient   *http.Client
}

// Factory builds a Provider from configuration
type Factory func(FactoryConfig) (Provider, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a provider available under one or more names
func Register(name string, factory Factory, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()

	for _, n := range append([]string{name}, aliases...) {
		factories[strings.ToLower(n)] = factory
	}
}

// New constructs the provider named in cfg.Provider
func New(cfg FactoryConfig) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))

	mu.RLock()
	factory := factories[name]
	mu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("provider: %q not registered (available: %s)", cfg.Provider, strings.Join(Registered(), ", "))
	}
	return factory(cfg)
}

// Registered lists registered provider names
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
