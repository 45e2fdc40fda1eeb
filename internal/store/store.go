// Package store defines the message store the intake pipeline writes to.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"petanco-intake-api/internal/metrics"
	"petanco-intake-api/internal/models"
	"petanco-intake-api/internal/tracing"
)

// ErrNoID is returned when a backend reports success without an identifier.
var ErrNoID = errors.New("store: no message id returned")

// MessageStore is the append-only system of record for inbound messages.
type MessageStore interface {
	Save(ctx context.Context, sub models.CanonicalSubmission) (string, error)
	Close() error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Instrumented records a span and latency for every Save. An empty id from
// the wrapped store is turned into ErrNoID.
type Instrumented struct {
	next   MessageStore
	driver string
}

func NewInstrumented(next MessageStore, driver string) *Instrumented {
	return &Instrumented{next: next, driver: driver}
}

func (s *Instrumented) Save(ctx context.Context, sub models.CanonicalSubmission) (string, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "store.Save")
	defer span.End()
	span.SetAttributes(attribute.String("store.driver", s.driver))

	start := time.Now()
	id, err := s.next.Save(ctx, sub)
	metrics.StoreDuration.WithLabelValues(s.driver).Observe(time.Since(start).Seconds())

	if err == nil && id == "" {
		err = ErrNoID
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return "", err
	}

	span.SetAttributes(attribute.String("store.message_id", id))
	return id, nil
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}

func (s *Instrumented) Ping(ctx context.Context) error {
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// MemoryStore keeps messages in process. Setting Err makes every Save fail.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.CanonicalSubmission
	order   []string
	Err     error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.CanonicalSubmission)}
}

func (m *MemoryStore) Save(_ context.Context, sub models.CanonicalSubmission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", fmt.Errorf("memory store: %w", m.Err)
	}

	id := uuid.NewString()
	m.records[id] = sub
	m.order = append(m.order, id)
	return id, nil
}

// Get returns the stored submission for id.
func (m *MemoryStore) Get(id string) (models.CanonicalSubmission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.records[id]
	return sub, ok
}

// Len returns the number of stored messages.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

func (m *MemoryStore) Close() error { return nil }
