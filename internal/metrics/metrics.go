// ABOUTME: Prometheus metrics exposition for the vulnerability search service.
// ABOUTME: Counts tool calls by outcome, times them, and reports the loaded dataset on /metrics.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Tool call outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeEmpty    = "empty"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// DatasetProvider reports the loaded table without triggering a load
type DatasetProvider interface {
	DatasetInfo() (records int, loadedAt time.Time, loaded bool)
}

// DatasetProviderFunc adapts a function to DatasetProvider
type DatasetProviderFunc func() (int, time.Time, bool)

func (f DatasetProviderFunc) DatasetInfo() (int, time.Time, bool) {
	return f()
}

type MetricsHandler struct {
	dataset  DatasetProvider
	logger   *logrus.Logger
	registry *prometheus.Registry

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	cacheHits    *prometheus.CounterVec

	datasetRecords  prometheus.Gauge
	datasetLoadedAt prometheus.Gauge
	datasetLoaded   prometheus.Gauge
}

func NewMetricsHandler(dataset DatasetProvider, logger *logrus.Logger) *MetricsHandler {
	m := &MetricsHandler{
		dataset:  dataset,
		logger:   logger,
		registry: prometheus.NewRegistry(),

		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vulnsearch_tool_calls_total",
				Help: "Number of tool calls by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),

		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vulnsearch_tool_call_duration_seconds",
				Help:    "Time spent serving tool calls",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"tool"},
		),

		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vulnsearch_search_cache_requests_total",
				Help: "Search cache lookups by result (hit or miss)",
			},
			[]string{"result"},
		),

		datasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vulnsearch_dataset_records",
			Help: "Number of vulnerability records held in memory",
		}),

		datasetLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vulnsearch_dataset_loaded_timestamp",
			Help: "Unix time the vulnerability table was loaded",
		}),

		datasetLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vulnsearch_dataset_loaded",
			Help: "Whether the vulnerability table is loaded (1) or not (0)",
		}),
	}

	m.registry.MustRegister(
		m.toolCalls,
		m.toolDuration,
		m.cacheHits,
		m.datasetRecords,
		m.datasetLoadedAt,
		m.datasetLoaded,
	)

	return m
}

// ObserveToolCall records one served tool call
func (m *MetricsHandler) ObserveToolCall(tool, outcome string, duration time.Duration) {
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObserveCache records a search cache lookup
func (m *MetricsHandler) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(result).Inc()
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Dataset gauges are refreshed at scrape time
	records, loadedAt, loaded := m.dataset.DatasetInfo()
	if loaded {
		m.datasetLoaded.Set(1)
		m.datasetRecords.Set(float64(records))
		m.datasetLoadedAt.Set(float64(loadedAt.Unix()))
	} else {
		m.datasetLoaded.Set(0)
		m.datasetRecords.Set(0)
		m.datasetLoadedAt.Set(0)
	}

	m.logger.WithField("records", records).Debug("Serving metrics")

	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	handler.ServeHTTP(w, r)
}
