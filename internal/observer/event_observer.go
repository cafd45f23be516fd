package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/veritas-go/internal/logger"
	"github.com/anime-shed/veritas-go/pkg/models"
)

// VerificationEvent represents a step in a verification
type VerificationEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	SessionID      string                 `json:"session_id"`
	Kind           models.ContentKind     `json:"kind,omitempty"`
	Provider       string                 `json:"provider,omitempty"`
	Verdict        models.Verdict         `json:"verdict,omitempty"`
	Score          float64                `json:"score,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorType      string                 `json:"error_type,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of verification event
type EventType string

const (
	VerificationStarted   EventType = "verification_started"
	VerificationCompleted EventType = "verification_completed"
	VerificationFailed    EventType = "verification_failed"
	// InputRejected when the collector refuses a submission
	InputRejected EventType = "input_rejected"
	// MediaResolved when a submitted URL was fetched as media
	MediaResolved      EventType = "media_resolved"
	MediaResolveFailed EventType = "media_resolve_failed"
	SessionReset       EventType = "session_reset"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event VerificationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event VerificationEvent)
}

// LoggingObserver logs verification events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event VerificationEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"session_id":      event.SessionID,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.Kind != "" {
		fields["kind"] = event.Kind
	}
	if event.Provider != "" {
		fields["provider"] = event.Provider
	}
	if event.Verdict != "" {
		fields["verdict"] = event.Verdict
		fields["score"] = event.Score
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_type"] = event.ErrorType
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case VerificationStarted:
		entry.Info("Verification started")
	case VerificationCompleted:
		entry.Info("Verification completed")
	case VerificationFailed:
		entry.Error("Verification failed")
	case InputRejected:
		entry.Warn("Input rejected")
	case MediaResolved:
		entry.Debug("URL resolved to media")
	case MediaResolveFailed:
		entry.Warn("URL media resolution failed")
	case SessionReset:
		entry.Debug("Session reset")
	default:
		entry.Info("Verification event occurred")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a point-in-time copy of the counters
type Metrics struct {
	TotalVerifications      int64                    `json:"total_verifications"`
	SuccessfulVerifications int64                    `json:"successful_verifications"`
	FailedVerifications     int64                    `json:"failed_verifications"`
	RejectedInputs          int64                    `json:"rejected_inputs"`
	ByVerdict               map[models.Verdict]int64 `json:"by_verdict"`
	ByKind                  map[string]int64         `json:"by_kind"`
	ByErrorType             map[string]int64         `json:"by_error_type"`
	TotalProcessingTime     time.Duration            `json:"total_processing_time_ns"`
	AvgProcessingTime       time.Duration            `json:"avg_processing_time_ns"`
}

// MetricsObserver collects counters from verification events
type MetricsObserver struct {
	mu                  sync.RWMutex
	total               int64
	successful          int64
	failed              int64
	rejected            int64
	byVerdict           map[models.Verdict]int64
	byKind              map[string]int64
	byErrorType         map[string]int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		byVerdict:   make(map[models.Verdict]int64),
		byKind:      make(map[string]int64),
		byErrorType: make(map[string]int64),
	}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event VerificationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case VerificationStarted:
		o.total++
		o.byKind[string(event.Kind)]++
	case VerificationCompleted:
		o.successful++
		o.byVerdict[event.Verdict]++
		o.totalProcessingTime += event.ProcessingTime
	case VerificationFailed:
		o.failed++
		o.byErrorType[event.ErrorType]++
	case InputRejected:
		o.rejected++
		o.byErrorType[event.ErrorType]++
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a copy of the current counters
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m := Metrics{
		TotalVerifications:      o.total,
		SuccessfulVerifications: o.successful,
		FailedVerifications:     o.failed,
		RejectedInputs:          o.rejected,
		ByVerdict:               make(map[models.Verdict]int64, len(o.byVerdict)),
		ByKind:                  make(map[string]int64, len(o.byKind)),
		ByErrorType:             make(map[string]int64, len(o.byErrorType)),
		TotalProcessingTime:     o.totalProcessingTime,
	}
	for k, v := range o.byVerdict {
		m.ByVerdict[k] = v
	}
	for k, v := range o.byKind {
		m.ByKind[k] = v
	}
	for k, v := range o.byErrorType {
		m.ByErrorType[k] = v
	}
	if o.successful > 0 {
		m.AvgProcessingTime = o.totalProcessingTime / time.Duration(o.successful)
	}
	return m
}

// EventPublisher implements Subject, dispatching on a bounded worker pool
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	pool      *WorkerPool
}

// NewEventPublisher creates a publisher with the given number of dispatch workers
func NewEventPublisher(workers int) *EventPublisher {
	pool := NewWorkerPool(workers)
	pool.Start()
	return &EventPublisher{
		observers: make([]Observer, 0),
		pool:      pool,
	}
}

func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers hands the event to every observer asynchronously. The
// request context's cancellation is not propagated to observers.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event VerificationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, observer := range observers {
		obs := observer
		p.pool.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(logrus.Fields{
						"observer": obs.GetObserverName(),
						"panic":    r,
					}).Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(detached, event)
		})
	}
}

// Flush waits for every dispatched event to be handled
func (p *EventPublisher) Flush() {
	p.pool.Wait()
}

// Close flushes pending events and stops the dispatch workers
func (p *EventPublisher) Close() {
	p.pool.Wait()
	p.pool.Close()
}
