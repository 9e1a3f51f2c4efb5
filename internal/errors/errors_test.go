package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/require"

	"github.com/replykit/replykit/internal/observability"
	"github.com/replykit/replykit/internal/server/middleware"
)

func TestHTTPStatusFromCode(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, HTTPStatusFromCode(CodeInvalidInput))
	require.Equal(t, http.StatusNotFound, HTTPStatusFromCode(CodeNotFound))
	require.Equal(t, http.StatusMethodNotAllowed, HTTPStatusFromCode(CodeMethodNotAllowed))
	require.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatusFromCode(CodeTooLarge))
	require.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode(CodeServiceUnavailable))
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("SOMETHING_ELSE"))
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(nil))
}

func TestWrapInvalidInputUsesRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDContextKey, "req-42")

	env := WrapInvalidInput(ctx, stderrors.New("unexpected EOF"), "invalid request body")
	require.Equal(t, CodeInvalidInput, env.Code)
	require.Equal(t, "req-42", env.CorrelationID)
	require.Equal(t, "unexpected EOF", env.Context["wrapped_error"])
}

func TestEnsureEnvelopeWrapsPlainErrors(t *testing.T) {
	env := EnsureEnvelope(stderrors.New("boom"))
	require.Equal(t, CodeInternal, env.Code)
	require.Equal(t, "boom", env.Context["wrapped_error"])

	original := NewNotFoundError("missing")
	require.Same(t, original, EnsureEnvelope(original))
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/reply", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDContextKey, "req-7"))
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, NewServiceUnavailableError("reply client not configured"))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, CodeServiceUnavailable, body.Error.Code)
	require.Equal(t, "reply client not configured", body.Error.Message)
	require.Equal(t, "req-7", body.Error.RequestID)
}

func TestRespondWithErrorTagsRequestMetrics(t *testing.T) {
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)
	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	handler := middleware.RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithError(w, r, WrapExternalService(r.Context(), stderrors.New("dial tcp: refused"), "exporter down"))
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	errs := collector.GetMetricsByName(middleware.HTTPErrorsTotal)
	require.Len(t, errs, 1)
	require.Equal(t, CodeExternalService, errs[0].Tags["error_code"])
	require.Equal(t, "/metrics", errs[0].Tags["endpoint"])
	require.Equal(t, 1, collector.CountMetricsByName("errors_total"))
}
