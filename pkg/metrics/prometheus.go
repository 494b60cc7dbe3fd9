// Package metrics provides Prometheus metrics for the compliance radar pipeline.
package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for a pipeline run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Feed metrics
	itemsFetched  *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec

	// Pipeline stage metrics
	itemsClassified prometheus.Counter
	itemsRelevant   prometheus.Counter
	itemsDuplicate  prometheus.Counter
	itemsEmitted    prometheus.Gauge
	runDuration     prometheus.Histogram
	lastRunUnix     prometheus.Gauge

	// Output metrics
	publishFailures *prometheus.CounterVec
	archiveFailures prometheus.Counter

	// Dashboard HTTP metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// variableLabels are the per-series label names; constant labels must not reuse them.
var variableLabels = []string{"source", "publisher", "endpoint", "method", "status_code"} //nolint:gochecknoglobals // fixed label set

var (
	namespacePattern = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`) //nolint:gochecknoglobals // compiled once
	labelPattern     = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)  //nolint:gochecknoglobals // compiled once
)

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := newManager(opts...)
	m.initializeMetrics()
	return m
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Options that collectors would reject wrap ErrInvalidOption and
// leave the current manager in place. Call it before recording starts.
func Configure(opts ...Option) error {
	registry := prometheus.NewRegistry()
	m := newManager(append(slices.Clone(opts), WithPrometheusRegistry(registry))...)
	if err := m.validate(); err != nil {
		return err
	}
	m.initializeMetrics()

	customRegistry = registry
	globalManager = m
	return nil
}

func newManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "radar",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) validate() error {
	if !namespacePattern.MatchString(m.namespace) {
		return fmt.Errorf("%w: namespace %q", ErrInvalidOption, m.namespace)
	}
	for name := range m.customLabels {
		if !labelPattern.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: label name %q", ErrInvalidOption, name)
		}
		if slices.Contains(variableLabels, name) {
			return fmt.Errorf("%w: label %q is set per series", ErrInvalidOption, name)
		}
	}
	for i := 1; i < len(m.histogramBuckets); i++ {
		if m.histogramBuckets[i] <= m.histogramBuckets[i-1] {
			return fmt.Errorf("%w: histogram buckets must increase", ErrInvalidOption)
		}
	}
	return nil
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.itemsFetched = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "items_fetched_total",
		Help:        "Total number of raw items read per source",
		ConstLabels: constLabels,
	}, []string{"source"})

	m.fetchFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_failures_total",
		Help:        "Total number of sources that yielded nothing because of a fetch or parse failure",
		ConstLabels: constLabels,
	}, []string{"source"})

	m.fetchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_duration_seconds",
		Help:        "Time spent fetching and parsing a single source",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"source"})

	m.itemsClassified = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "items_classified_total",
		Help:        "Total number of items run through the topic matcher",
		ConstLabels: constLabels,
	})

	m.itemsRelevant = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "items_relevant_total",
		Help:        "Total number of items matching at least one vertical and one compliance cluster",
		ConstLabels: constLabels,
	})

	m.itemsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "items_duplicate_total",
		Help:        "Total number of relevant items collapsed by deduplication",
		ConstLabels: constLabels,
	})

	m.itemsEmitted = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "items_emitted",
		Help:        "Number of items emitted by the last run",
		ConstLabels: constLabels,
	})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Wall time of a full collection run",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		ConstLabels: constLabels,
	})

	m.lastRunUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_run_timestamp_seconds",
		Help:        "Unix time the last run finished",
		ConstLabels: constLabels,
	})

	m.publishFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "publish_failures_total",
		Help:        "Total number of failed payload deliveries per publisher",
		ConstLabels: constLabels,
	}, []string{"publisher"})

	m.archiveFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "archive_failures_total",
		Help:        "Total number of failed run archive writes",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Total number of dashboard HTTP requests",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_seconds",
		Help:        "Dashboard HTTP request duration in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordItemsFetched adds n raw items read from source.
func (m *Manager) RecordItemsFetched(source string, n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.itemsFetched.WithLabelValues(source).Add(float64(n))
}

// RecordFetchFailure counts a source that produced no items because of an error.
func (m *Manager) RecordFetchFailure(source string) {
	if !m.enabled {
		return
	}
	m.fetchFailures.WithLabelValues(source).Inc()
}

// RecordFetchLatency records how long a source took, in seconds.
func (m *Manager) RecordFetchLatency(source string, seconds float64) {
	if !m.enabled {
		return
	}
	m.fetchLatency.WithLabelValues(source).Observe(seconds)
}

// RecordStageCounts records the per-stage item counts of one run.
func (m *Manager) RecordStageCounts(classified, relevant, duplicates, emitted int) {
	if !m.enabled {
		return
	}
	m.itemsClassified.Add(float64(classified))
	m.itemsRelevant.Add(float64(relevant))
	m.itemsDuplicate.Add(float64(duplicates))
	m.itemsEmitted.Set(float64(emitted))
}

// RecordRun records the duration and completion time of a run.
func (m *Manager) RecordRun(seconds float64, finishedUnix int64) {
	if !m.enabled {
		return
	}
	m.runDuration.Observe(seconds)
	m.lastRunUnix.Set(float64(finishedUnix))
}

// RecordPublishFailure counts a failed delivery for the named publisher.
func (m *Manager) RecordPublishFailure(publisher string) {
	if !m.enabled {
		return
	}
	m.publishFailures.WithLabelValues(publisher).Inc()
}

// RecordArchiveFailure counts a failed archive write.
func (m *Manager) RecordArchiveFailure() {
	if !m.enabled {
		return
	}
	m.archiveFailures.Inc()
}

// RecordHTTPRequest counts one request and observes its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordItemsFetched adds n raw items read from source.
func RecordItemsFetched(source string, n int) { globalManager.RecordItemsFetched(source, n) }

// RecordFetchFailure counts a failed source.
func RecordFetchFailure(source string) { globalManager.RecordFetchFailure(source) }

// RecordFetchLatency records how long a source took, in seconds.
func RecordFetchLatency(source string, seconds float64) {
	globalManager.RecordFetchLatency(source, seconds)
}

// RecordStageCounts records the per-stage item counts of one run.
func RecordStageCounts(classified, relevant, duplicates, emitted int) {
	globalManager.RecordStageCounts(classified, relevant, duplicates, emitted)
}

// RecordRun records the duration and completion time of a run.
func RecordRun(seconds float64, finishedUnix int64) { globalManager.RecordRun(seconds, finishedUnix) }

// RecordPublishFailure counts a failed delivery.
func RecordPublishFailure(publisher string) { globalManager.RecordPublishFailure(publisher) }

// RecordArchiveFailure counts a failed archive write.
func RecordArchiveFailure() { globalManager.RecordArchiveFailure() }

// RecordHTTPRequest counts one dashboard request.
func RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, seconds)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current state of the custom registry to path in the
// node_exporter textfile format.
func WriteTextfile(path string) error {
	return WriteGathererTextfile(path, customRegistry)
}

// WriteGathererTextfile writes all metrics of g to path.
func WriteGathererTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrExportFailed)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}
