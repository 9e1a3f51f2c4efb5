package driver

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTraceRedactsKeyAndWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	stop, err := EnableTracing(path)
	require.NoError(t, err)
	require.True(t, IsTracingEnabled())

	Trace(TraceEntry{
		Driver:     "gemini",
		Endpoint:   "https://example.test/v1beta/models/m:generateContent?key=secret-key",
		Method:     "POST",
		StatusCode: 200,
	})
	Trace(TraceEntry{Driver: "gemini", Endpoint: "https://example.test/", Method: "POST"})
	stop()
	require.False(t, IsTracingEnabled())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "secret-key")

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry TraceEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.NotEmpty(t, entry.ID)
	require.Contains(t, entry.Endpoint, "key=REDACTED")
	require.False(t, entry.Timestamp.IsZero())
}

func TestTraceWithoutTracerIsNoop(t *testing.T) {
	DisableTracing()
	Trace(TraceEntry{Driver: "gemini"})
	require.False(t, IsTracingEnabled())
}

func TestProviderErrorStatusName(t *testing.T) {
	err := &ProviderError{Provider: "gemini", StatusCode: 503, Message: "down"}
	require.Equal(t, "ServiceUnavailable", err.StatusName())
	require.False(t, err.RateLimited())
	require.Contains(t, err.Error(), "status 503")

	limited := &ProviderError{Provider: "gemini", StatusCode: 429}
	require.True(t, limited.RateLimited())
	require.Equal(t, "TooManyRequests", limited.StatusName())

	var missing *ProviderError
	require.Empty(t, missing.StatusName())
}

func TestStatusName(t *testing.T) {
	cases := map[int]string{
		http.StatusInternalServerError:     "InternalServerError",
		http.StatusBadGateway:              "BadGateway",
		http.StatusGatewayTimeout:          "GatewayTimeout",
		http.StatusBadRequest:              "BadRequest",
		http.StatusForbidden:               "Forbidden",
		http.StatusRequestEntityTooLarge:   "RequestEntityTooLarge",
		http.StatusRequestURITooLong:       "RequestUriTooLong",
		http.StatusHTTPVersionNotSupported: "HttpVersionNotSupported",
		http.StatusTeapot:                  "418",
		599:                                "599",
		0:                                  "0",
	}
	for code, want := range cases {
		require.Equal(t, want, StatusName(code), "code %d", code)
	}
}

func TestRedactSecret(t *testing.T) {
	require.Equal(t, "call with REDACTED failed", RedactSecret("call with abc123 failed", "abc123"))
	require.Equal(t, "unchanged", RedactSecret("unchanged", ""))
}
