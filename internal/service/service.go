package service

import (
	"context"

	"petanco-intake-api/internal/apperrors"
	"petanco-intake-api/internal/events"
	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/messages"
	"petanco-intake-api/internal/metrics"
	"petanco-intake-api/internal/models"
	"petanco-intake-api/internal/normalize"
	"petanco-intake-api/internal/store"
	"petanco-intake-api/internal/validation"
)

// Service runs the part of the intake pipeline that follows authentication:
// validate, normalize, store, then publish the outcome.
type Service struct {
	validator  *validation.Validator
	normalizer *normalize.Normalizer
	store      store.MessageStore
	events     *events.Manager
	catalog    messages.Catalog
	log        logger.Logger
}

type Options struct {
	Schema  validation.Schema
	Catalog messages.Catalog
	Store   store.MessageStore
	// Events may be nil when no outcome subscribers are configured.
	Events *events.Manager
	Log    logger.Logger
}

// NewService creates a new service instance.
func NewService(opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	ev := opts.Events
	if ev == nil {
		ev = events.NewManager(false, log)
	}
	return &Service{
		validator:  validation.NewValidator(opts.Schema, opts.Catalog),
		normalizer: normalize.NewNormalizer(opts.Schema, opts.Catalog),
		store:      opts.Store,
		events:     ev,
		catalog:    opts.Catalog,
		log:        log,
	}
}

// Submit persists one submission and returns the store's id. Validation
// errors are aggregated. A store failure is reported as StorageFailed and
// still published as a failure outcome.
func (s *Service) Submit(ctx context.Context, req models.SubmissionRequest) (string, error) {
	if errs := s.validator.Validate(req.Params); len(errs) > 0 {
		var fields []string
		for _, e := range s.validator.Errors(errs) {
			fields = append(fields, e.Field)
		}
		s.log.Warn("validation failed", map[string]interface{}{
			"fields":    fields,
			"remote_ip": req.RemoteIP,
		})
		metrics.RejectionsTotal.WithLabelValues(apperrors.CodeValidationFailed).Inc()
		return "", apperrors.NewValidationFailed(s.catalog.Get(messages.ValidationFailed), errs)
	}

	sub := s.normalizer.Normalize(req.Params, models.Meta{
		RemoteIP:  req.RemoteIP,
		UserAgent: req.UserAgent,
	})

	id, err := s.store.Save(ctx, sub)
	if err == nil && id == "" {
		err = store.ErrNoID
	}
	if err != nil {
		s.log.WithError(err).Error("failed to save submission", map[string]interface{}{
			"remote_ip": req.RemoteIP,
		})
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.events.PublishSubmissionFailed(context.WithoutCancel(ctx), req.RemoteIP)
		return "", apperrors.NewStorageFailed(s.catalog.Get(messages.SubmissionFailed), err)
	}

	s.log.Info("submission saved", map[string]interface{}{
		"submission_id": id,
		"remote_ip":     req.RemoteIP,
	})
	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeStored).Inc()
	// Notifications outlive a client that hangs up after the write.
	s.events.PublishSubmissionSucceeded(context.WithoutCancel(ctx), id, req.RemoteIP)

	return id, nil
}

// Ping reports store connectivity when the store supports it.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
