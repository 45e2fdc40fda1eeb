// Package notifier reports submission outcomes to external receivers.
package notifier

import (
	"time"

	"petanco-intake-api/internal/events"
	"petanco-intake-api/internal/models"
)

// NewPayload builds the outbound body for an outcome. SubmissionID is null
// on failure.
func NewPayload(outcome events.SubmissionOutcome, at time.Time) models.WebhookPayload {
	payload := models.WebhookPayload{
		Event:     models.EventSubmissionFailure,
		Timestamp: at.Unix(),
	}
	if outcome.Succeeded() {
		id := outcome.SubmissionID
		payload.Event = models.EventSubmissionSuccess
		payload.SubmissionID = &id
	}
	return payload
}

func outcomeOf(e events.Event) (events.SubmissionOutcome, bool) {
	out, ok := e.Data.(events.SubmissionOutcome)
	return out, ok
}
