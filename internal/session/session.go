// Package session holds the per-user analysis state machine:
//
//	Idle -> Analyzing -> Complete | Error -> (Reset) -> Idle
//
// Submitting from Complete or Error starts a new analysis directly.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/anime-shed/veritas-go/pkg/models"
)

var (
	// ErrAnalysisInProgress is returned when a session already has a request in flight
	ErrAnalysisInProgress = errors.New("an analysis is already in progress for this session")

	// ErrNotAnalyzing is returned when completing or failing a session that is not analyzing
	ErrNotAnalyzing = errors.New("session is not analyzing")
)

// Session is the explicit state of one user's verification workflow
type Session struct {
	mu sync.Mutex

	id        string
	status    models.AnalysisStatus
	input     *models.InputSummary
	result    *models.VerificationResult
	errMsg    string
	updatedAt time.Time
}

// New creates an idle session
func New(id string) *Session {
	return &Session{id: id, status: models.StatusIdle, updatedAt: time.Now()}
}

func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle state
func (s *Session) Status() models.AnalysisStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Begin moves the session to Analyzing, clearing the previous result and error
func (s *Session) Begin(input *models.InputSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == models.StatusAnalyzing {
		return ErrAnalysisInProgress
	}
	s.status = models.StatusAnalyzing
	s.input = input
	s.result = nil
	s.errMsg = ""
	s.updatedAt = time.Now()
	return nil
}

// Complete records a successful result
func (s *Session) Complete(result models.VerificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusAnalyzing {
		return ErrNotAnalyzing
	}
	s.status = models.StatusComplete
	s.result = &result
	s.updatedAt = time.Now()
	return nil
}

// Fail records a failed analysis with a user-facing message
func (s *Session) Fail(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusAnalyzing {
		return ErrNotAnalyzing
	}
	s.status = models.StatusError
	s.errMsg = message
	s.updatedAt = time.Now()
	return nil
}

// Reset returns the session to Idle. History lives outside the session
// and is untouched. An in-flight analysis cannot be reset.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == models.StatusAnalyzing {
		return ErrAnalysisInProgress
	}
	s.status = models.StatusIdle
	s.input = nil
	s.result = nil
	s.errMsg = ""
	s.updatedAt = time.Now()
	return nil
}

// Snapshot returns a copy of the state without history
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.SessionSnapshot{
		SessionID: s.id,
		Status:    s.status,
		Error:     s.errMsg,
	}
	if s.input != nil {
		in := *s.input
		snap.Input = &in
	}
	if s.result != nil {
		res := *s.result
		snap.Result = &res
	}
	return snap
}

// UpdatedAt reports the last state change
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
