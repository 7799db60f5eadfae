// ABOUTME: Tests for Prometheus metrics handler functionality.
// ABOUTME: Tests tool call counters, cache counters, and dataset gauges in the exposition output.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestObserveToolCall(t *testing.T) {
	handler := NewMetricsHandler(DatasetProviderFunc(func() (int, time.Time, bool) {
		return 0, time.Time{}, false
	}), testLogger())

	handler.ObserveToolCall("search_vulnerabilities", OutcomeSuccess, 2*time.Millisecond)
	handler.ObserveToolCall("search_vulnerabilities", OutcomeSuccess, time.Millisecond)
	handler.ObserveToolCall("search_vulnerabilities", OutcomeEmpty, time.Millisecond)
	handler.ObserveToolCall("get_vulnerability_details", OutcomeNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(handler.toolCalls.WithLabelValues("search_vulnerabilities", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(handler.toolCalls.WithLabelValues("search_vulnerabilities", OutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(handler.toolCalls.WithLabelValues("get_vulnerability_details", OutcomeNotFound)))
	assert.Equal(t, 2, testutil.CollectAndCount(handler.toolDuration))
}

func TestObserveCache(t *testing.T) {
	handler := NewMetricsHandler(DatasetProviderFunc(func() (int, time.Time, bool) {
		return 0, time.Time{}, false
	}), testLogger())

	handler.ObserveCache(true)
	handler.ObserveCache(false)
	handler.ObserveCache(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(handler.cacheHits.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(handler.cacheHits.WithLabelValues("miss")))
}

func TestMetricsHandler_ServeHTTP(t *testing.T) {
	loadedAt := time.Unix(1735732800, 0)

	tests := []struct {
		name     string
		provider DatasetProviderFunc
		expected []string
	}{
		{
			name: "dataset loaded",
			provider: func() (int, time.Time, bool) {
				return 3, loadedAt, true
			},
			expected: []string{
				"vulnsearch_dataset_loaded 1",
				"vulnsearch_dataset_records 3",
				"vulnsearch_dataset_loaded_timestamp 1.7357328e+09",
				`vulnsearch_tool_calls_total{outcome="success",tool="search_vulnerabilities"} 1`,
			},
		},
		{
			name: "dataset not loaded",
			provider: func() (int, time.Time, bool) {
				return 0, time.Time{}, false
			},
			expected: []string{
				"vulnsearch_dataset_loaded 0",
				"vulnsearch_dataset_records 0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewMetricsHandler(tt.provider, testLogger())
			handler.ObserveToolCall("search_vulnerabilities", OutcomeSuccess, time.Millisecond)

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			body := w.Body.String()
			for _, line := range tt.expected {
				assert.Contains(t, body, line)
			}
		})
	}
}
