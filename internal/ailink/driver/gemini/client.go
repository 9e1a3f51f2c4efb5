package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/replykit/replykit/internal/ailink/driver"
)

// Client defaults.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"
	DefaultTimeout = 60 * time.Second
)

const providerName = "gemini"

// Client implements the Gemini generateContent call via direct HTTP.
//
// The API key travels as the `key` query parameter; no auth header is sent.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration

	Generation GenerationConfig
	Safety     []SafetySetting
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = DefaultBaseURL
	}

	return &Client{
		BaseURL:    base,
		APIKey:     strings.TrimSpace(apiKey),
		Model:      DefaultModel,
		Timeout:    DefaultTimeout,
		Generation: DefaultGenerationConfig(),
		Safety:     DefaultSafetySettings(),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return providerName
}

// Endpoint returns the generateContent URL without the API key.
func (c *Client) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/v1beta/models/" + url.PathEscape(c.model()) + ":generateContent"
}

// GenerateContent sends text as a single content part and decodes the response.
//
// Non-2xx responses are returned as *driver.ProviderError. A 2xx body that is not
// valid JSON is returned as a decode error.
func (c *Client) GenerateContent(ctx context.Context, text string) (*GenerateContentResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildGenerateRequest(text, c.Generation, c.Safety)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	endpoint := c.Endpoint() + "?key=" + url.QueryEscape(c.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", redactURLError(err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	trace := driver.TraceEntry{
		Timestamp:   start,
		Driver:      providerName,
		Endpoint:    endpoint,
		Method:      http.MethodPost,
		Model:       c.model(),
		RequestBody: body,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		err = redactURLError(err)
		trace.Error = err.Error()
		trace.DurationMs = time.Since(start).Milliseconds()
		driver.Trace(trace)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	trace.StatusCode = resp.StatusCode
	trace.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		trace.Error = err.Error()
		driver.Trace(trace)
		return nil, fmt.Errorf("read response: %w", err)
	}
	if json.Valid(respBody) {
		trace.Response = respBody
	}
	driver.Trace(trace)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &driver.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    driver.RedactSecret(strings.TrimSpace(string(respBody)), c.APIKey),
		}
	}

	var parsed GenerateContentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

func (c *Client) model() string {
	if model := strings.TrimSpace(c.Model); model != "" {
		return model
	}
	return DefaultModel
}

func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr != nil {
		urlErr.URL = driver.RedactURL(urlErr.URL)
	}
	return err
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
