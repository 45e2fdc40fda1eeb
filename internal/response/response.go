// Package response writes the JSON bodies shared by middleware and handlers.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"petanco-intake-api/internal/apperrors"
	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/models"
)

// CalloutLayout is the server timestamp format the sender expects.
const CalloutLayout = "2006-01-02 15:04:05"

// Writer renders responses. The zero value writes UTC callouts using
// time.Now.
type Writer struct {
	Location    *time.Location
	Now         func() time.Time
	EmitCallout bool
	Log         logger.Logger
}

func NewWriter(loc *time.Location, emitCallout bool, log logger.Logger) *Writer {
	return &Writer{Location: loc, Now: time.Now, EmitCallout: emitCallout, Log: log}
}

// Callout returns the current server time, or "" when callouts are off.
func (rw *Writer) Callout() string {
	if !rw.EmitCallout {
		return ""
	}
	now := time.Now
	if rw.Now != nil {
		now = rw.Now
	}
	loc := rw.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc).Format(CalloutLayout)
}

// JSON sends v with the given status code.
func (rw *Writer) JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && rw.Log != nil {
		rw.Log.Error("failed to encode JSON response", map[string]interface{}{"error": err.Error()})
	}
}

// Error sends the REST error envelope for err. Causes are never exposed.
func (rw *Writer) Error(w http.ResponseWriter, err error) {
	appErr := apperrors.As(err)
	rw.JSON(w, appErr.Status(), models.ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Data: models.ErrorData{
			Status:  appErr.Status(),
			Errors:  appErr.Fields,
			Callout: rw.Callout(),
		},
	})
}
