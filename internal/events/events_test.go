package events

import (
	"context"
	"errors"
	"testing"

	"petanco-intake-api/internal/logger"
)

func TestPublish_RunsHandlersInOrder(t *testing.T) {
	m := NewManager(true, logger.NewTestLogger(t))

	var calls []string
	m.Subscribe(EventSubmissionSucceeded, func(ctx context.Context, e Event) error {
		calls = append(calls, "first")
		return errors.New("receiver down")
	})
	m.Subscribe(EventSubmissionSucceeded, func(ctx context.Context, e Event) error {
		out, ok := e.Data.(SubmissionOutcome)
		if !ok || out.SubmissionID != "id-1" || !out.Succeeded() {
			t.Errorf("Unexpected event data: %#v", e.Data)
		}
		calls = append(calls, "second")
		return nil
	})

	m.PublishSubmissionSucceeded(context.Background(), "id-1", "203.0.113.7")

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("Expected both handlers in order, got %v", calls)
	}
}

func TestPublish_OnlyMatchingType(t *testing.T) {
	m := NewManager(true, logger.NewTestLogger(t))

	var failed int
	m.Subscribe(EventSubmissionFailed, func(ctx context.Context, e Event) error {
		if e.Data.(SubmissionOutcome).Succeeded() {
			t.Error("Failure outcome must not carry an id")
		}
		failed++
		return nil
	})

	m.PublishSubmissionSucceeded(context.Background(), "id-1", "")
	m.PublishSubmissionFailed(context.Background(), "")

	if failed != 1 {
		t.Errorf("Expected 1 failure event, got %d", failed)
	}
}

func TestDisabledManager(t *testing.T) {
	m := NewManager(false, nil)

	called := false
	m.Subscribe(EventSubmissionFailed, func(ctx context.Context, e Event) error {
		called = true
		return nil
	})
	m.PublishSubmissionFailed(context.Background(), "")

	if called {
		t.Error("Disabled manager must not dispatch")
	}
}

func TestShutdown(t *testing.T) {
	m := NewManager(true, nil)

	called := false
	m.Subscribe(EventSubmissionFailed, func(ctx context.Context, e Event) error {
		called = true
		return nil
	})
	m.Shutdown()
	m.PublishSubmissionFailed(context.Background(), "")

	if called {
		t.Error("Expected no dispatch after Shutdown")
	}
}
