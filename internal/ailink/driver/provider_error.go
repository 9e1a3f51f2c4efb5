package driver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ProviderError is returned when a provider responds with a non-2xx status.
// Message must never include API keys.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

// RateLimited reports whether the provider rejected the request with 429.
func (e *ProviderError) RateLimited() bool {
	return e != nil && e.StatusCode == http.StatusTooManyRequests
}

// StatusName returns the status as a single identifier, e.g. "ServiceUnavailable".
func (e *ProviderError) StatusName() string {
	if e == nil {
		return ""
	}
	return StatusName(e.StatusCode)
}

// Codes whose conventional identifier is not http.StatusText squashed. An
// empty value means the code has no name and renders as a number.
var statusNameOverrides = map[int]string{
	http.StatusNonAuthoritativeInfo:    "NonAuthoritativeInformation",
	http.StatusRequestURITooLong:       "RequestUriTooLong",
	http.StatusTeapot:                  "",
	http.StatusTooEarly:                "",
	http.StatusHTTPVersionNotSupported: "HttpVersionNotSupported",
}

var statusNameSquasher = strings.NewReplacer(" ", "", "-", "")

// StatusName renders code as a PascalCase identifier ("InternalServerError").
// Unnamed codes render as the bare number ("599").
func StatusName(code int) string {
	name, overridden := statusNameOverrides[code]
	if !overridden {
		name = statusNameSquasher.Replace(http.StatusText(code))
	}
	if name == "" {
		return strconv.Itoa(code)
	}
	return name
}
