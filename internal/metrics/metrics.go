// Package metrics provides Prometheus metrics for the upload API and audio worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "audioproc"

// Job outcomes recorded in JobsTotal.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeMalformed = "malformed"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	// Upload API
	UploadsTotal *prometheus.CounterVec

	// Worker jobs
	JobsTotal   *prometheus.CounterVec
	JobDuration prometheus.Histogram

	// Transcript stages
	HypothesesDropped prometheus.Counter
	MessagesProcessed prometheus.Counter

	// Waveform cutting
	ClipsWritten    prometheus.Counter
	ClipsEmpty      prometheus.Counter
	ClipSeconds     prometheus.Histogram
	MessageFailures *prometheus.CounterVec

	// Events
	EventsPublished *prometheus.CounterVec
}

// DefaultMetrics is registered with the default Prometheus registry.
var DefaultMetrics = New(prometheus.DefaultRegisterer)

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Recording uploads received by the API",
		}, []string{"result"}),

		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Audio processing jobs by outcome",
		}, []string{"outcome"}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time spent on one audio processing job",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		HypothesesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hypotheses_dropped_total",
			Help:      "Superseded ASR hypotheses removed by deduplication",
		}),
		MessagesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Chat messages that received a transcript span",
		}),

		ClipsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clips_written_total",
			Help:      "Per-message audio clips written",
		}),
		ClipsEmpty: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clips_empty_total",
			Help:      "Messages whose span fell outside the decoded recording",
		}),
		ClipSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clip_length_seconds",
			Help:      "Length of written audio clips",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
		MessageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_failures_total",
			Help:      "Per-message artifact failures by stage",
		}, []string{"stage"}),

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Audio-ready events by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) RecordJob(outcome string, seconds float64) {
	m.JobsTotal.WithLabelValues(outcome).Inc()
	m.JobDuration.Observe(seconds)
}

func (m *Metrics) RecordMessageFailure(stage string) {
	m.MessageFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordEvent(err error) {
	if err != nil {
		m.EventsPublished.WithLabelValues("error").Inc()
		return
	}
	m.EventsPublished.WithLabelValues("ok").Inc()
}
