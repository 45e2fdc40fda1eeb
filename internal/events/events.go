package events

import (
	"context"
	"sync"
	"time"

	"petanco-intake-api/internal/logger"
)

// EventType represents the type of event.
type EventType string

const (
	// EventSubmissionSucceeded is emitted after the store returned an id.
	EventSubmissionSucceeded EventType = "submission.succeeded"
	// EventSubmissionFailed is emitted when the store rejected a submission.
	EventSubmissionFailed EventType = "submission.failed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// SubmissionOutcome is the payload of both submission events. SubmissionID
// is empty on failure.
type SubmissionOutcome struct {
	SubmissionID string
	RemoteIP     string
}

// Succeeded reports whether the outcome carries a stored id.
func (o SubmissionOutcome) Succeeded() bool {
	return o.SubmissionID != ""
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager dispatches events to subscribers. Handlers run in the publishing
// goroutine, one after another, and their errors are logged and dropped.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	log      logger.Logger
	now      func() time.Time
}

// NewManager creates a new event manager.
func NewManager(enabled bool, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
		log:      log,
		now:      time.Now,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish runs every handler subscribed to eventType.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	m.mu.RLock()
	enabled := m.enabled
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if !enabled || len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: m.now(),
		Data:      data,
	}

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			m.log.WithError(err).Warn("event handler failed", map[string]interface{}{
				"event": string(eventType),
			})
		}
	}
}

// PublishSubmissionSucceeded publishes a success outcome for id.
func (m *Manager) PublishSubmissionSucceeded(ctx context.Context, id, remoteIP string) {
	m.Publish(ctx, EventSubmissionSucceeded, SubmissionOutcome{SubmissionID: id, RemoteIP: remoteIP})
}

// PublishSubmissionFailed publishes a failure outcome.
func (m *Manager) PublishSubmissionFailed(ctx context.Context, remoteIP string) {
	m.Publish(ctx, EventSubmissionFailed, SubmissionOutcome{RemoteIP: remoteIP})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
