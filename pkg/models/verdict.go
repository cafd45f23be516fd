package models

import (
	"fmt"
	"math"
	"strings"
)

// Verdict is the categorical outcome of a verification
type Verdict string

const (
	VerdictAuthentic  Verdict = "Authentic"
	VerdictSuspicious Verdict = "Suspicious"
	VerdictFraudulent Verdict = "Fraudulent"
)

var verdictSynonyms = map[string]Verdict{
	"authentic":    VerdictAuthentic,
	"genuine":      VerdictAuthentic,
	"real":         VerdictAuthentic,
	"legitimate":   VerdictAuthentic,
	"verified":     VerdictAuthentic,
	"suspicious":   VerdictSuspicious,
	"uncertain":    VerdictSuspicious,
	"inconclusive": VerdictSuspicious,
	"unverified":   VerdictSuspicious,
	"fraudulent":   VerdictFraudulent,
	"fraud":        VerdictFraudulent,
	"fake":         VerdictFraudulent,
	"scam":         VerdictFraudulent,
	"manipulated":  VerdictFraudulent,
	"deepfake":     VerdictFraudulent,
	"forged":       VerdictFraudulent,
}

// ParseVerdict maps a provider verdict label onto the closed Verdict set
func ParseVerdict(label string) (Verdict, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	if v, ok := verdictSynonyms[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("unknown verdict %q", label)
}

// ClampScore bounds a confidence score to [0,100]
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(100, score))
}
