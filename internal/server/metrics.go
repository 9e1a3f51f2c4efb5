package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/replykit/replykit/internal/config"
	apperrors "github.com/replykit/replykit/internal/errors"
	"github.com/replykit/replykit/internal/observability"
)

// Headers net/http manages per connection; they are not copied from the exporter.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// metricsProxy serves the exporter's Prometheus text on the main listener so
// one port covers both reply traffic and scrapes. ?format=json dumps the raw
// metric events instead.
type metricsProxy struct {
	client *http.Client
	port   func() int
}

var defaultMetricsProxy = &metricsProxy{
	client: &http.Client{Timeout: 5 * time.Second},
	port:   metricsPort,
}

// MetricsHandler serves GET /metrics.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	defaultMetricsProxy.ServeHTTP(w, r)
}

func (p *metricsProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !observability.MetricsEnabled() {
		apperrors.RespondWithError(w, r, apperrors.NewServiceUnavailableError("metrics are disabled (set metrics.enabled)"))
		return
	}

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/x-ndjson")
		if err := observability.PrometheusExporter.WriteMetrics(w); err != nil {
			logMetricsWarning("Failed to write metric events", err)
		}
		return
	}

	target := fmt.Sprintf("http://127.0.0.1:%d/metrics", p.port())
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "unable to build metrics request"))
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapExternalService(r.Context(), err, "prometheus exporter unavailable"))
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logMetricsWarning("Failed to close metrics response body", err)
		}
	}()

	for key, values := range resp.Header {
		if hopByHopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logMetricsWarning("Failed to write metrics response", err)
	}
}

// metricsPort prefers the bound exporter port over the configured one.
func metricsPort() int {
	if port := observability.GetMetricsPort(); port > 0 {
		return port
	}
	if cfg := config.GetConfig(); cfg != nil && cfg.Metrics.Port > 0 {
		return cfg.Metrics.Port
	}
	return observability.DefaultMetricsPort
}

func logMetricsWarning(msg string, err error) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn(msg, zap.Error(err))
	}
}
