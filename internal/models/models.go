package models

import (
	"bytes"
	"encoding/json"
)

// Channel tags every submission stored by this integration.
const Channel = "petanco"

// SubmissionRequest is the parsed inbound call. It is never persisted as-is.
type SubmissionRequest struct {
	Params    map[string]string
	APIKey    string
	UserAgent string
	Origin    string
	RemoteIP  string
}

// Field is one normalized name/value pair.
type Field struct {
	Name  string
	Value string
}

// Fields keeps normalized fields in their canonical order. It encodes as a
// JSON object whose keys follow that order.
type Fields []Field

// Get returns the value for name, or "" when absent.
func (f Fields) Get(name string) string {
	for _, field := range f {
		if field.Name == name {
			return field.Value
		}
	}
	return ""
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Meta is transport data captured at receipt time.
type Meta struct {
	RemoteIP  string `json:"remote_ip" bson:"remote_ip"`
	UserAgent string `json:"user_agent" bson:"user_agent"`
}

// CanonicalSubmission is the sanitized, write-once record handed to the
// message store.
type CanonicalSubmission struct {
	Channel     string `json:"channel"`
	Subject     string `json:"subject"`
	FromDisplay string `json:"from"`
	FromName    string `json:"from_name"`
	FromEmail   string `json:"from_email"`
	Fields      Fields `json:"fields"`
	Body        string `json:"body"`
	Meta        Meta   `json:"meta"`
}

// SubmissionResponse is the 200 body.
type SubmissionResponse struct {
	Message string `json:"message"`
	Callout string `json:"callout,omitempty"`
}

// ErrorData mirrors the data member of a WordPress REST error, which the
// sender already parses.
type ErrorData struct {
	Status  int               `json:"status"`
	Errors  map[string]string `json:"errors,omitempty"`
	Callout string            `json:"callout,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

// OriginErrorResponse is returned by the strict CORS gate.
type OriginErrorResponse struct {
	Error string `json:"error"`
}

// Outcome events reported to webhook receivers.
const (
	EventSubmissionSuccess = "submission_success"
	EventSubmissionFailure = "submission_failure"
)

// WebhookPayload is the outbound notification body. SubmissionID is null on
// failure.
type WebhookPayload struct {
	Event        string  `json:"event"`
	SubmissionID *string `json:"submission_id"`
	Timestamp    int64   `json:"timestamp"`
}
