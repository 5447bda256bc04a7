// Package metrics provides the Prometheus metrics of the classification backend.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission results.
const (
	ResultCreated      = "created"
	ResultInvalid      = "invalid"
	ResultModelError   = "model_error"
	ResultStorageError = "storage_error"
)

// Metrics contains the submission, classification and search metrics.
type Metrics struct {
	Submissions            *prometheus.CounterVec
	ImagesDeduplicated     prometheus.Counter
	PredictionCacheHits    prometheus.Counter
	ClassificationDuration prometheus.Histogram
	SearchDuration         prometheus.Histogram
}

// New creates the metrics and registers them with registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathclassifier_submissions_total",
			Help: "Total number of submissions by result.",
		}, []string{"result"}),
		ImagesDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pathclassifier_images_deduplicated_total",
			Help: "Total number of submissions that reused an already stored image.",
		}),
		PredictionCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pathclassifier_prediction_cache_hits_total",
			Help: "Total number of classifications served from the prediction cache.",
		}),
		ClassificationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pathclassifier_classification_duration_seconds",
			Help:    "Duration of model inference calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pathclassifier_search_duration_seconds",
			Help:    "Duration of filtered submission searches in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if err := registerer.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

// ObserveSubmission counts one submission attempt.
func (m *Metrics) ObserveSubmission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) IncImagesDeduplicated() {
	if m == nil {
		return
	}
	m.ImagesDeduplicated.Inc()
}

func (m *Metrics) IncPredictionCacheHits() {
	if m == nil {
		return
	}
	m.PredictionCacheHits.Inc()
}

// ObserveClassification records an inference duration in seconds.
func (m *Metrics) ObserveClassification(seconds float64) {
	if m == nil {
		return
	}
	m.ClassificationDuration.Observe(seconds)
}

// ObserveSearch records a search duration in seconds.
func (m *Metrics) ObserveSearch(seconds float64) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(seconds)
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Submissions.Describe(ch)
	ch <- m.ImagesDeduplicated.Desc()
	ch <- m.PredictionCacheHits.Desc()
	ch <- m.ClassificationDuration.Desc()
	ch <- m.SearchDuration.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Submissions.Collect(ch)
	ch <- m.ImagesDeduplicated
	ch <- m.PredictionCacheHits
	ch <- m.ClassificationDuration
	ch <- m.SearchDuration
}
