package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AnalysisEvent represents an analysis event
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	ImageID        string                 `json:"image_id"`
	Source         string                 `json:"source"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of analysis event
type EventType string

const (
	// AnalysisStarted when analysis begins
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when analysis finishes successfully
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when analysis fails
	AnalysisFailed EventType = "analysis_failed"
	// ImageFetched when a remote image is downloaded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a remote image download fails
	ImageFetchFailed EventType = "image_fetch_failed"
	// CacheHit when a stored result is served instead of clustering
	CacheHit EventType = "cache_hit"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"image_id":        event.ImageID,
		"source":          event.Source,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Debug("Skin tone analysis started")
	case AnalysisCompleted:
		entry.Info("Skin tone analysis completed")
	case AnalysisFailed:
		entry.Warn("Skin tone analysis failed")
	case ImageFetched, CacheHit:
		entry.Debug("Analysis input resolved")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	default:
		entry.Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a snapshot of MetricsObserver counters
type Metrics struct {
	TotalAnalyses      int64   `json:"total_analyses"`
	SuccessfulAnalyses int64   `json:"successful_analyses"`
	FailedAnalyses     int64   `json:"failed_analyses"`
	CacheHits          int64   `json:"cache_hits"`
	FetchFailures      int64   `json:"fetch_failures"`
	AvgProcessingSec   float64 `json:"avg_processing_time_sec"`
}

// MetricsObserver collects metrics from analysis events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalAnalyses       int64
	successfulAnalyses  int64
	failedAnalyses      int64
	cacheHits           int64
	fetchFailures       int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.totalAnalyses++
	case AnalysisCompleted:
		o.successfulAnalyses++
		o.totalProcessingTime += event.ProcessingTime
	case AnalysisFailed:
		o.failedAnalyses++
	case CacheHit:
		o.cacheHits++
	case ImageFetchFailed:
		o.fetchFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var avg float64
	if o.successfulAnalyses > 0 {
		avg = (o.totalProcessingTime / time.Duration(o.successfulAnalyses)).Seconds()
	}

	return Metrics{
		TotalAnalyses:      o.totalAnalyses,
		SuccessfulAnalyses: o.successfulAnalyses,
		FailedAnalyses:     o.failedAnalyses,
		CacheHits:          o.cacheHits,
		FetchFailures:      o.fetchFailures,
		AvgProcessingSec:   avg,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
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

// NotifyObservers delivers event to every observer in subscription order.
// Delivery is synchronous so counters are current when a request returns.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event AnalysisEvent) {
	defer func() {
		if r := recover(); r != nil {
			// Log panic but don't crash the application
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
