package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/veritas-go/internal/analyzer"
	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/internal/intake"
	"github.com/anime-shed/veritas-go/internal/logger"
	"github.com/anime-shed/veritas-go/internal/observer"
	"github.com/anime-shed/veritas-go/internal/ocr"
	"github.com/anime-shed/veritas-go/internal/provider"
	"github.com/anime-shed/veritas-go/internal/repository"
	"github.com/anime-shed/veritas-go/internal/session"
	"github.com/anime-shed/veritas-go/pkg/models"
)

// VerificationService orchestrates collection, provider calls, session
// state and history.
type VerificationService interface {
	// Verify runs one blocking verification for the session
	Verify(ctx context.Context, sessionID string, raw intake.RawInput) (*models.VerificationResult, error)

	// Reset returns the session to idle, keeping its history
	Reset(ctx context.Context, sessionID string) (models.SessionSnapshot, error)

	// Snapshot returns the session state with its display history
	Snapshot(ctx context.Context, sessionID string) (models.SessionSnapshot, error)

	// History returns up to limit items, newest first, and the total count.
	// A limit <= 0 returns everything.
	History(ctx context.Context, sessionID string, limit int) ([]models.HistoryItem, int, error)

	// HistoryItem looks up one past result of the session by id
	HistoryItem(ctx context.Context, sessionID, id string) (*models.HistoryItem, error)

	// ProviderName reports which provider answers verifications
	ProviderName() string

	// EvictIdle forgets sessions untouched for longer than maxAge, together
	// with their history, and returns their IDs
	EvictIdle(ctx context.Context, maxAge time.Duration) ([]string, error)
}

// Dependencies are the collaborators of the verification service.
// Media, OCR, Images and Events are optional.
type Dependencies struct {
	Collector intake.Collector
	Provider  provider.Provider
	Media     repository.MediaRepository
	History   repository.HistoryRepository
	Sessions  *session.Manager
	Lock      session.Lock
	OCR       ocr.TextExtractor
	Images    analyzer.ImageInspector
	Events    observer.Subject
}

// Options tune orchestration behaviour
type Options struct {
	// ResolveURLs fetches submitted URLs and sends media content when found
	ResolveURLs bool

	HistoryDisplayLimit int
}

type verificationService struct {
	deps Dependencies
	opts Options
}

// NewVerificationService creates the orchestrator
func NewVerificationService(deps Dependencies, opts Options) VerificationService {
	if deps.Sessions == nil {
		deps.Sessions = session.NewManager()
	}
	if deps.Lock == nil {
		deps.Lock = session.NewMemoryLock()
	}
	if deps.History == nil {
		deps.History = repository.NewMemoryHistoryRepository()
	}
	if deps.OCR == nil {
		deps.OCR = ocr.NewTextExtractor(false)
	}
	if opts.HistoryDisplayLimit <= 0 {
		opts.HistoryDisplayLimit = models.HistoryDisplayLimit
	}

	return &verificationService{deps: deps, opts: opts}
}

func (s *verificationService) ProviderName() string {
	return s.deps.Provider.Name()
}

func (s *verificationService) Verify(ctx context.Context, sessionID string, raw intake.RawInput) (*models.VerificationResult, error) {
	start := time.Now()

	req, err := s.deps.Collector.Collect(raw)
	if err != nil {
		s.publish(ctx, observer.VerificationEvent{
			EventType:    observer.InputRejected,
			SessionID:    sessionID,
			ErrorType:    errorType(err),
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	sess, _ := s.deps.Sessions.GetOrCreate(sessionID)

	release, err := s.deps.Lock.Acquire(ctx, sess.ID())
	if err != nil {
		if errors.Is(err, session.ErrAnalysisInProgress) {
			return nil, apperrors.NewConflictError(err.Error(), err)
		}
		return nil, apperrors.NewInternalError("session lock unavailable", err)
	}
	defer release()

	if err := sess.Begin(req.Summary()); err != nil {
		return nil, apperrors.NewConflictError(err.Error(), err)
	}

	s.publish(ctx, observer.VerificationEvent{
		EventType: observer.VerificationStarted,
		SessionID: sess.ID(),
		Kind:      req.Kind,
		Provider:  s.deps.Provider.Name(),
	})

	sub := s.prepare(ctx, sess.ID(), req)

	// no deadline of our own; the provider client and the caller own timeouts
	resp, err := s.deps.Provider.Submit(ctx, sub)
	if err == nil {
		resp, err = s.checkResponse(resp)
	}
	if err != nil {
		return nil, s.fail(ctx, sess, req, start, err)
	}

	result := models.VerificationResult{
		Verdict:   resp.Verdict,
		Score:     models.ClampScore(resp.Score),
		Rationale: resp.Rationale,
		Provider:  s.deps.Provider.Name(),
		CreatedAt: time.Now().UTC(),
	}

	// the provider answered; record the outcome even if the caller went away
	stateCtx := context.WithoutCancel(ctx)
	item := models.HistoryItem{
		Preview: models.PreviewFor(req),
		Kind:    req.Kind,
		Result:  result,
	}
	if _, err := s.deps.History.Prepend(stateCtx, sess.ID(), item); err != nil {
		logger.WithFields(logrus.Fields{
			"session_id": sess.ID(),
			"error":      err.Error(),
		}).Error("Failed to record history item")
	}
	if err := sess.Complete(result); err != nil {
		return nil, apperrors.NewInternalError("failed to complete session", err)
	}

	s.publish(ctx, observer.VerificationEvent{
		EventType:      observer.VerificationCompleted,
		SessionID:      sess.ID(),
		Kind:           req.Kind,
		Provider:       result.Provider,
		Verdict:        result.Verdict,
		Score:          result.Score,
		ProcessingTime: time.Since(start),
		Success:        true,
	})

	return &result, nil
}

// fail moves the session to Error and returns an error carrying the
// user-facing message while keeping the provider failure as cause.
func (s *verificationService) fail(ctx context.Context, sess *session.Session, req *models.AnalysisRequest, start time.Time, cause error) error {
	var failure *apperrors.AppError
	if appErr, ok := apperrors.As(cause); ok && appErr.Type == apperrors.ErrorTypeMalformedResponse {
		failure = apperrors.NewMalformedResponseError(apperrors.AnalysisFailedMessage, cause).WithDetails(appErr.Message)
	} else {
		failure = apperrors.NewProviderUnavailableError(apperrors.AnalysisFailedMessage, cause)
		if ok {
			failure = failure.WithDetails(appErr.Message)
		}
	}

	if err := sess.Fail(apperrors.AnalysisFailedMessage); err != nil {
		logger.WithFields(logrus.Fields{
			"session_id": sess.ID(),
			"error":      err.Error(),
		}).Error("Failed to record session failure")
	}

	s.publish(ctx, observer.VerificationEvent{
		EventType:      observer.VerificationFailed,
		SessionID:      sess.ID(),
		Kind:           req.Kind,
		Provider:       s.deps.Provider.Name(),
		ProcessingTime: time.Since(start),
		ErrorType:      string(failure.Type),
		ErrorMessage:   cause.Error(),
	})
	return failure
}

// checkResponse rejects responses a provider should never produce
func (s *verificationService) checkResponse(resp *provider.Response) (*provider.Response, error) {
	if resp == nil {
		return nil, apperrors.NewMalformedResponseError("provider returned no response", nil)
	}
	verdict, err := models.ParseVerdict(string(resp.Verdict))
	if err != nil {
		return nil, apperrors.NewMalformedResponseError("provider returned an unknown verdict", err)
	}
	out := *resp
	out.Verdict = verdict
	return &out, nil
}

const maxPageTextRunes = 8000

// prepare builds the provider submission, resolving URLs to media or page
// text and running OCR on images when those features are enabled.
func (s *verificationService) prepare(ctx context.Context, sessionID string, req *models.AnalysisRequest) provider.Submission {
	sub := provider.SubmissionFromRequest(req)

	if req.Kind == models.ContentKindURL && s.opts.ResolveURLs && s.deps.Media != nil {
		media, err := s.deps.Media.FetchMedia(ctx, req.URL)
		if err != nil {
			s.publish(ctx, observer.VerificationEvent{
				EventType:    observer.MediaResolveFailed,
				SessionID:    sessionID,
				Kind:         req.Kind,
				ErrorMessage: err.Error(),
			})
		} else if repository.IsHTML(media.MimeType) {
			sub.ExtractedText = repository.PageText(media.Data, maxPageTextRunes)
			s.publish(ctx, observer.VerificationEvent{
				EventType: observer.MediaResolved,
				SessionID: sessionID,
				Kind:      req.Kind,
				Metadata: map[string]interface{}{
					"mime_type":  media.MimeType,
					"bytes":      len(media.Data),
					"page_chars": len(sub.ExtractedText),
				},
			})
		} else {
			sub.Data = media.Data
			sub.MimeType = media.MimeType
			sub.Filename = media.Filename
			s.publish(ctx, observer.VerificationEvent{
				EventType: observer.MediaResolved,
				SessionID: sessionID,
				Kind:      req.Kind,
				Metadata: map[string]interface{}{
					"mime_type": media.MimeType,
					"bytes":     len(media.Data),
				},
			})
		}
	}

	isImage := len(sub.Data) > 0 && models.MediaTypeOf(sub.MimeType) == models.MediaTypeImage

	if isImage && s.deps.OCR.Enabled() {
		text, err := s.deps.OCR.Extract(ctx, sub.Data)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Text extraction failed")
		} else {
			sub.ExtractedText = text
		}
	}

	if isImage && s.deps.Images != nil {
		signals, err := s.deps.Images.Inspect(ctx, sub.Data)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"session_id": sessionID,
				"mime_type":  sub.MimeType,
				"error":      err.Error(),
			}).Warn("Image inspection failed")
		} else {
			sub.ImageSignals = signals
		}
	}

	// a resolved URL is analysed as media, named after its source
	if req.Kind == models.ContentKindURL && len(sub.Data) > 0 {
		sub.Kind = models.ContentKindMedia
		if sub.Filename == "" {
			sub.Filename = req.URL
		}
	}

	return sub
}

func (s *verificationService) Reset(ctx context.Context, sessionID string) (models.SessionSnapshot, error) {
	sess, _ := s.deps.Sessions.GetOrCreate(sessionID)
	if err := sess.Reset(); err != nil {
		return models.SessionSnapshot{}, apperrors.NewConflictError(err.Error(), err)
	}

	s.publish(ctx, observer.VerificationEvent{EventType: observer.SessionReset, SessionID: sess.ID(), Success: true})
	return s.snapshotOf(ctx, sess)
}

func (s *verificationService) Snapshot(ctx context.Context, sessionID string) (models.SessionSnapshot, error) {
	sess, _ := s.deps.Sessions.GetOrCreate(sessionID)
	return s.snapshotOf(ctx, sess)
}

func (s *verificationService) snapshotOf(ctx context.Context, sess *session.Session) (models.SessionSnapshot, error) {
	snap := sess.Snapshot()

	recent, err := s.deps.History.Recent(ctx, sess.ID(), s.opts.HistoryDisplayLimit)
	if err != nil {
		return models.SessionSnapshot{}, apperrors.NewInternalError("failed to load history", err)
	}
	total, err := s.deps.History.Len(ctx, sess.ID())
	if err != nil {
		return models.SessionSnapshot{}, apperrors.NewInternalError("failed to load history", err)
	}

	snap.History = recent
	snap.HistoryTotal = total
	return snap, nil
}

func (s *verificationService) History(ctx context.Context, sessionID string, limit int) ([]models.HistoryItem, int, error) {
	var items []models.HistoryItem
	var err error
	if limit > 0 {
		items, err = s.deps.History.Recent(ctx, sessionID, limit)
	} else {
		items, err = s.deps.History.All(ctx, sessionID)
	}
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to load history", err)
	}

	total, err := s.deps.History.Len(ctx, sessionID)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to load history", err)
	}
	return items, total, nil
}

func (s *verificationService) HistoryItem(ctx context.Context, sessionID, id string) (*models.HistoryItem, error) {
	item, err := s.deps.History.Get(ctx, sessionID, id)
	if errors.Is(err, repository.ErrHistoryItemNotFound) {
		return nil, apperrors.NewNotFoundError("history item not found", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load history", err)
	}
	return item, nil
}

func (s *verificationService) EvictIdle(ctx context.Context, maxAge time.Duration) ([]string, error) {
	evicted := s.deps.Sessions.EvictIdle(maxAge)
	for _, id := range evicted {
		if err := s.deps.History.Delete(ctx, id); err != nil {
			return evicted, apperrors.NewInternalError("failed to drop session history", err)
		}
	}
	return evicted, nil
}

func (s *verificationService) publish(ctx context.Context, event observer.VerificationEvent) {
	if s.deps.Events == nil {
		return
	}
	s.deps.Events.NotifyObservers(ctx, event)
}

func errorType(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return string(appErr.Type)
	}
	return string(apperrors.ErrorTypeInternal)
}
