package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ModuleEvent represents a module invocation event
type ModuleEvent struct {
	EventType EventType              `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	RunID     string                 `json:"run_id"`
	Module    string                 `json:"module"`
	State     string                 `json:"state,omitempty"`
	Duration  time.Duration          `json:"duration,omitempty"`
	Success   bool                   `json:"success"`
	ErrorKind string                 `json:"error_kind,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of module event
type EventType string

const (
	// ModuleStarted when a module is selected and its run begins
	ModuleStarted EventType = "module_started"
	// StateChanged when the dispatcher moves to a new state
	StateChanged EventType = "state_changed"
	// ModuleCompleted when the result was rendered
	ModuleCompleted EventType = "module_completed"
	// ModuleFailed when the run ended in the error state
	ModuleFailed EventType = "module_failed"
	// ModuleRejected when the module tag was not recognised
	ModuleRejected EventType = "module_rejected"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ModuleEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ModuleEvent)
}

// LoggingObserver logs module events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles module events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event ModuleEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"run_id":     event.RunID,
		"module":     event.Module,
	}
	if event.State != "" {
		fields["state"] = event.State
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.ErrorKind != "" {
		fields["error_kind"] = event.ErrorKind
		fields["error"] = event.Message
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case ModuleStarted:
		o.logger.WithFields(fields).Info("Module run started")
	case StateChanged:
		o.logger.WithFields(fields).Debug("Dispatcher state changed")
	case ModuleCompleted:
		o.logger.WithFields(fields).Info("Module run completed")
	case ModuleFailed:
		o.logger.WithFields(fields).Error("Module run failed")
	case ModuleRejected:
		o.logger.WithFields(fields).Warn("Module selection rejected")
	default:
		o.logger.WithFields(fields).Info("Module event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
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

// NotifyObservers notifies all observers of an event, in subscription order,
// on the caller's goroutine
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ModuleEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	for _, observer := range observers {
		notify(ctx, observer, event)
	}
}

func notify(ctx context.Context, obs Observer, event ModuleEvent) {
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
