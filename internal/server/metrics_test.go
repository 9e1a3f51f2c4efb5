package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
	"github.com/stretchr/testify/require"

	apperrors "github.com/replykit/replykit/internal/errors"
	"github.com/replykit/replykit/internal/metrics"
	"github.com/replykit/replykit/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// installExporter wires an unstarted exporter so handlers see metrics as enabled.
func installExporter(t *testing.T) *exporters.PrometheusExporter {
	t.Helper()
	exporter := exporters.NewPrometheusExporter("test", ":0")
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	require.NoError(t, err)

	prevExporter, prevSystem := observability.PrometheusExporter, observability.TelemetrySystem
	observability.PrometheusExporter, observability.TelemetrySystem = exporter, sys
	t.Cleanup(func() {
		observability.PrometheusExporter, observability.TelemetrySystem = prevExporter, prevSystem
	})
	return exporter
}

func TestMetricsProxyForwardsExporterText(t *testing.T) {
	installExporter(t)

	var target string
	proxy := &metricsProxy{
		port: func() int { return 19191 },
		client: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			target = req.URL.String()
			require.Equal(t, "text/plain", req.Header.Get("Accept"))
			resp := &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader("test_reply_outcomes_total{kind=\"reply\"} 2\n")),
			}
			resp.Header.Set("Connection", "close")
			return resp, nil
		})},
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "http://127.0.0.1:19191/metrics", target)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Empty(t, rec.Header().Get("Connection"))
	require.Contains(t, rec.Body.String(), `test_reply_outcomes_total{kind="reply"} 2`)
}

func TestMetricsProxyReportsUnreachableExporter(t *testing.T) {
	installExporter(t)

	proxy := &metricsProxy{
		port: func() int { return 19191 },
		client: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})},
	}

	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, apperrors.CodeExternalService, body.Error.Code)
}

func TestMetricsHandlerJSONDumpsReplyEvents(t *testing.T) {
	installExporter(t)
	metrics.RecordRetry("rate_limited")

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics?format=json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), metrics.ReplyRetriesTotal)
	require.Contains(t, rec.Body.String(), "rate_limited")
}

func TestMetricsHandlerUnavailableWhenDisabled(t *testing.T) {
	prevExporter, prevSystem := observability.PrometheusExporter, observability.TelemetrySystem
	observability.PrometheusExporter, observability.TelemetrySystem = nil, nil
	t.Cleanup(func() {
		observability.PrometheusExporter, observability.TelemetrySystem = prevExporter, prevSystem
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, apperrors.CodeServiceUnavailable, body.Error.Code)
	require.Contains(t, body.Error.Message, "metrics.enabled")
}

func TestMetricsPortFallsBackToDefault(t *testing.T) {
	require.NoError(t, observability.ShutdownMetrics())
	require.Equal(t, observability.DefaultMetricsPort, metricsPort())
}
