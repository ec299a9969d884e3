package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	WebhookEventsReceived *prometheus.CounterVec
	WebhookRejected       prometheus.Counter
	AnswersGenerated      *prometheus.CounterVec
	TicketsOpened         *prometheus.CounterVec
	DigestRuns            *prometheus.CounterVec
	RetrievalDuration     prometheus.Histogram
	GenerationDuration    prometheus.Histogram
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all collectors on the given registerer.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WebhookEventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_received_total",
			Help: "Total number of webhook events received, by event type",
		}, []string{"type"}),
		WebhookRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "webhook_rejected_total",
			Help: "Total number of webhook requests rejected (bad signature or payload)",
		}),
		AnswersGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "answers_generated_total",
			Help: "Total number of auto-answer attempts, by outcome",
		}, []string{"outcome"}), // answered | declined
		TicketsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tickets_opened_total",
			Help: "Total number of escalation tickets opened, by reason",
		}, []string{"reason"}),
		DigestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_runs_total",
			Help: "Total number of digest job runs, by status",
		}, []string{"status"}), // pushed | skipped | failed
		RetrievalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "retrieval_duration_seconds",
			Help:    "Time taken to embed a question and search the FAQ store",
			Buckets: prometheus.DefBuckets,
		}),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Time taken for the language model to produce an answer",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
