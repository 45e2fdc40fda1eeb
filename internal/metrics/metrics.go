package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petanco_submissions_total",
			Help: "Submissions handled, by outcome",
		},
		[]string{"outcome"},
	)

	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petanco_rejections_total",
			Help: "Requests rejected before reaching the store, by error code",
		},
		[]string{"code"},
	)

	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petanco_webhook_deliveries_total",
			Help: "Outcome notifications sent, by channel and result",
		},
		[]string{"channel", "result"},
	)

	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "petanco_store_duration_seconds",
			Help:    "Time spent persisting a submission",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver"},
	)
)

// Outcome label values.
const (
	OutcomeStored = "stored"
	OutcomeFailed = "failed"
)
