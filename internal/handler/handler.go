package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"petanco-intake-api/internal/apperrors"
	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/messages"
	"petanco-intake-api/internal/middleware"
	"petanco-intake-api/internal/models"
	"petanco-intake-api/internal/response"
	"petanco-intake-api/internal/service"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	writer      *response.Writer
	catalog     messages.Catalog
	log         logger.Logger
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	Writer      *response.Writer
	Catalog     messages.Catalog
	Log         logger.Logger
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		Writer:      response.NewWriter(time.UTC, true, nil),
		Catalog:     messages.For(messages.DefaultLocale),
		Log:         logger.NewNoOpLogger(),
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	defaults := DefaultHandlerOptions()
	if opts.Writer == nil {
		opts.Writer = defaults.Writer
	}
	if opts.Log == nil {
		opts.Log = defaults.Log
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaults.MaxBodySize
	}
	return &Handler{
		service:     svc,
		writer:      opts.Writer,
		catalog:     opts.Catalog,
		log:         opts.Log,
		maxBodySize: opts.MaxBodySize,
	}
}

// Submit handles POST /petanco-api/v1/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	// Limit request body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	params, err := parseParams(r)
	if err != nil {
		h.log.Warn("unparseable request body", map[string]interface{}{
			"error":        err.Error(),
			"content_type": r.Header.Get("Content-Type"),
		})
		h.writer.Error(w, apperrors.NewBadRequest(apperrors.CodeInvalidRequestBody, h.catalog.Get(messages.InvalidRequestBody)))
		return
	}

	_, err = h.service.Submit(r.Context(), models.SubmissionRequest{
		Params:    params,
		APIKey:    r.Header.Get(middleware.APIKeyHeader),
		UserAgent: r.UserAgent(),
		Origin:    r.Header.Get("Origin"),
		RemoteIP:  middleware.GetClientKey(r),
	})
	if err != nil {
		h.writer.Error(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.writer.JSON(w, http.StatusOK, models.SubmissionResponse{
		Message: h.catalog.Get(messages.SubmissionSaved),
		Callout: h.writer.Callout(),
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.log.WithError(err).Error("health check failed", nil)
		h.writer.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writer.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseParams merges query parameters with a JSON or form body, body values
// taking precedence.
func parseParams(r *http.Request) (map[string]string, error) {
	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		body, err := decodeJSON(r.Body)
		if err != nil {
			return nil, err
		}
		for k, v := range body {
			params[k] = v
		}
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 10); err != nil {
			return nil, err
		}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
	}

	return params, nil
}

// decodeJSON reads a flat JSON object. Scalars are converted to strings;
// nested values become empty strings.
func decodeJSON(body io.Reader) (map[string]string, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			if val {
				out[k] = "1"
			} else {
				out[k] = ""
			}
		default:
			out[k] = ""
		}
	}
	return out, nil
}
