package models

// AnalysisStatus is the lifecycle state of a session's current analysis
type AnalysisStatus string

const (
	StatusIdle      AnalysisStatus = "idle"
	StatusAnalyzing AnalysisStatus = "analyzing"
	StatusComplete  AnalysisStatus = "complete"
	StatusError     AnalysisStatus = "error"
)

// SessionSnapshot is what the presentation layer renders
type SessionSnapshot struct {
	SessionID    string              `json:"session_id"`
	Status       AnalysisStatus      `json:"status"`
	Input        *InputSummary       `json:"input,omitempty"`
	Result       *VerificationResult `json:"result,omitempty"`
	Error        string              `json:"error,omitempty"`
	History      []HistoryItem       `json:"history"`
	HistoryTotal int                 `json:"history_total"`
}
