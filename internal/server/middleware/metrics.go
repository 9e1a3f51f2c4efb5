package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/replykit/replykit/internal/observability"
)

// HTTP metric names.
const (
	HTTPRequestsTotal     = "http_requests_total"
	HTTPRequestDurationMs = "http_request_duration_ms"
	HTTPResponseSizeBytes = "http_response_size_bytes"
	HTTPErrorsTotal       = "http_errors_total"
)

// Endpoint labels for requests that never reached a chi route.
var fallbackEndpoints = map[string]string{
	"/health":         "/health/*",
	"/health/live":    "/health/*",
	"/health/ready":   "/health/*",
	"/health/startup": "/health/*",
	"/v1/reply":       "/v1/reply",
	"/version":        "/version",
	"/metrics":        "/metrics",
	"/admin/signal":   "/admin/signal",
	"/":               "/",
}

// requestTags collects labels that only the handler knows. Handlers write
// them through SetOutcomeKind and SetErrorCode; RequestMetrics reads them
// once the handler returns.
type requestTags struct {
	kind      string
	errorCode string
}

type requestTagsKey struct{}

func tagsFrom(ctx context.Context) *requestTags {
	if ctx == nil {
		return nil
	}
	tags, _ := ctx.Value(requestTagsKey{}).(*requestTags)
	return tags
}

// SetOutcomeKind labels the current request with the reply outcome kind.
// It is a no-op outside RequestMetrics.
func SetOutcomeKind(ctx context.Context, kind string) {
	if tags := tagsFrom(ctx); tags != nil {
		tags.kind = kind
	}
}

// SetErrorCode labels the current request with the error envelope code.
func SetErrorCode(ctx context.Context, code string) {
	if tags := tagsFrom(ctx); tags != nil {
		tags.errorCode = code
	}
}

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.size += int64(n)
	return n, err
}

func endpointLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if label, ok := fallbackEndpoints[r.URL.Path]; ok {
		return label
	}
	return "/unknown"
}

// RequestMetrics emits per-request counters and logs one line per request.
// Reply requests carry the outcome kind as a label, so a 200 that ended in
// a safety block is distinguishable from one that carried text.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tags := &requestTags{}
		r = r.WithContext(context.WithValue(r.Context(), requestTagsKey{}, tags))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		endpoint := endpointLabel(r)
		emitRequestMetrics(r.Method, endpoint, rec, tags, elapsed)

		if observability.ServerLogger == nil {
			return
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("endpoint", endpoint),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.Int64("response_size", rec.size),
			zap.String("request_id", GetRequestID(r.Context())),
		}
		if tags.kind != "" {
			fields = append(fields, zap.String("kind", tags.kind))
		}
		if tags.errorCode != "" {
			fields = append(fields, zap.String("error_code", tags.errorCode))
		}
		observability.ServerLogger.Info("HTTP request completed", fields...)
	})
}

func emitRequestMetrics(method, endpoint string, rec *statusRecorder, tags *requestTags, elapsed time.Duration) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}

	// Request IDs stay out of labels.
	labels := map[string]string{
		"method":   method,
		"endpoint": endpoint,
		"status":   strconv.Itoa(rec.status),
	}
	if tags.kind != "" {
		labels["kind"] = tags.kind
	}
	_ = sys.Counter(HTTPRequestsTotal, 1, labels)
	_ = sys.Histogram(HTTPRequestDurationMs, elapsed, labels)
	_ = sys.Gauge(HTTPResponseSizeBytes, float64(rec.size), map[string]string{
		"method":   method,
		"endpoint": endpoint,
	})

	if rec.status < http.StatusBadRequest {
		return
	}
	errorType := "client_error"
	if rec.status >= http.StatusInternalServerError {
		errorType = "server_error"
	}
	errorCode := tags.errorCode
	if errorCode == "" {
		errorCode = "UNKNOWN"
	}
	_ = sys.Counter(HTTPErrorsTotal, 1, map[string]string{
		"method":     method,
		"endpoint":   endpoint,
		"status":     strconv.Itoa(rec.status),
		"error_type": errorType,
		"error_code": errorCode,
	})
}
