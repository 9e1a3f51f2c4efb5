package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/replykit/replykit/internal/ailink/driver"
)

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.GenerateContent(context.Background(), "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRejectsBlankText(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.GenerateContent(context.Background(), "   ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "text is required")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Empty(t, r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))

		contents := payload["contents"].([]any)
		require.Len(t, contents, 1)
		parts := contents[0].(map[string]any)["parts"].([]any)
		require.Len(t, parts, 1)
		require.Equal(t, "hello there", parts[0].(map[string]any)["text"])

		gen := payload["generationConfig"].(map[string]any)
		require.Equal(t, 0.7, gen["temperature"])
		require.Equal(t, float64(40), gen["topK"])
		require.Equal(t, 0.95, gen["topP"])
		require.Equal(t, float64(1024), gen["maxOutputTokens"])
		require.Equal(t, []any{}, gen["stopSequences"])

		safety := payload["safetySettings"].([]any)
		require.Len(t, safety, 4)
		for _, item := range safety {
			require.Equal(t, BlockMediumAndAbove, item.(map[string]any)["threshold"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello!"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":2,"candidatesTokenCount":1,"totalTokenCount":3}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.GenerateContent(context.Background(), "hello there")
	require.NoError(t, err)
	require.Len(t, resp.Candidates, 1)
	require.Equal(t, "STOP", resp.Candidates[0].FinishReason)
	text, ok := resp.Candidates[0].FirstText()
	require.True(t, ok)
	require.Equal(t, "Hello!", text)
}

func TestClientIgnoresUnreadFieldsOfAnyType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":7,"parts":[{"text":"Hi","thought":"x"}]},"index":"0"}],"modelVersion":2,"usageMetadata":"n/a","promptFeedback":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.GenerateContent(context.Background(), "hi")
	require.NoError(t, err)
	text, ok := resp.Candidates[0].FirstText()
	require.True(t, ok)
	require.Equal(t, "Hi", text)
}

func TestClientReturnsProviderErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.GenerateContent(context.Background(), "hi")
	require.Error(t, err)

	var perr *driver.ProviderError
	require.True(t, errors.As(err, &perr))
	require.True(t, perr.RateLimited())
	require.Equal(t, "TooManyRequests", perr.StatusName())
	require.Contains(t, perr.Message, "slow down")
}

func TestClientDecodeErrorOnInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.GenerateContent(context.Background(), "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")

	var perr *driver.ProviderError
	require.False(t, errors.As(err, &perr))
}

func TestClientTimeoutDoesNotLeakKey(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, "very-secret-key")
	client.HTTPClient = server.Client()
	client.Timeout = 20 * time.Millisecond

	_, err := client.GenerateContent(context.Background(), "hi")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.NotContains(t, err.Error(), "very-secret-key")
}

func TestEndpointUsesModel(t *testing.T) {
	client := NewClient("https://example.test/", "k")
	client.Model = "gemini-pro"
	require.Equal(t, "https://example.test/v1beta/models/gemini-pro:generateContent", client.Endpoint())
}

func TestSafetySettingsWithThreshold(t *testing.T) {
	settings := SafetySettingsWithThreshold("BLOCK_ONLY_HIGH")
	require.Len(t, settings, 4)
	require.Equal(t, HarmCategoryHarassment, settings[0].Category)
	require.Equal(t, "BLOCK_ONLY_HIGH", settings[3].Threshold)

	require.Equal(t, DefaultSafetySettings(), SafetySettingsWithThreshold(""))
}
