package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_MarshalKeepsOrder(t *testing.T) {
	fields := Fields{
		{Name: "subject", Value: "Gift"},
		{Name: "name", Value: "山田"},
		{Name: "email", Value: "a@example.com"},
	}

	data, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.Equal(t, `{"subject":"Gift","name":"山田","email":"a@example.com"}`, string(data))
}

func TestFields_Get(t *testing.T) {
	fields := Fields{{Name: "tel", Value: "0312345678"}}

	assert.Equal(t, "0312345678", fields.Get("tel"))
	assert.Equal(t, "", fields.Get("zip"))
}

func TestWebhookPayload_NullSubmissionID(t *testing.T) {
	data, err := json.Marshal(WebhookPayload{Event: EventSubmissionFailure, Timestamp: 1700000000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"submission_failure","submission_id":null,"timestamp":1700000000}`, string(data))
}
