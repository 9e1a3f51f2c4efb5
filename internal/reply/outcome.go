package reply

import "fmt"

// Kind classifies the result of a reply request.
type Kind int

const (
	// KindReply carries generated text.
	KindReply Kind = iota
	KindInvalidInput
	KindHTTPError
	KindSafetyBlocked
	KindRecitationBlocked
	KindEmptyReply
	KindQuotaExceeded
	KindAPIError
	KindUnexpectedResponse
	// KindExhausted means every attempt in the retry budget failed.
	KindExhausted
	// KindUnknown is any failure outside the retry loop.
	KindUnknown
)

var kindNames = map[Kind]string{
	KindReply:              "reply",
	KindInvalidInput:       "invalid_input",
	KindHTTPError:          "http_error",
	KindSafetyBlocked:      "safety_blocked",
	KindRecitationBlocked:  "recitation_blocked",
	KindEmptyReply:         "empty_reply",
	KindQuotaExceeded:      "quota_exceeded",
	KindAPIError:           "api_error",
	KindUnexpectedResponse: "unexpected_response",
	KindExhausted:          "exhausted",
	KindUnknown:            "unknown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind as its snake_case name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a snake_case kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseKind returns the Kind named name.
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown reply kind %q", name)
}

// User-facing messages. The wording is part of the public contract.
const (
	MsgInvalidInput       = "Please provide a message."
	MsgSafetyBlocked      = "❌ I can't provide a response to that request due to safety guidelines."
	MsgRecitationBlocked  = "❌ I can't provide that response due to content policy."
	MsgEmptyReply         = "❌ Received empty response from AI. Please try again."
	MsgQuotaExceeded      = "❌ Daily quota exceeded. Please try again tomorrow or check your API usage."
	MsgUnexpectedResponse = "❌ Unexpected response from AI. Please try again."
	MsgExhausted          = "❌ Service temporarily unavailable. Please try again in a few minutes."

	msgHTTPErrorFormat = "❌ API request failed: %s. Please try again in a few minutes."
	msgAPIErrorFormat  = "❌ API Error: %s"
	msgUnknownFormat   = "❌ Error: %s"

	defaultAPIErrorMessage = "Unknown error"
)

// Outcome is the structured result of Generate.
type Outcome struct {
	Kind Kind `json:"kind"`

	// Text is the generated reply for KindReply.
	Text string `json:"text,omitempty"`

	// Status names the HTTP status for KindHTTPError, e.g. "ServiceUnavailable".
	Status     string `json:"status,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	// Detail is the API error message (KindAPIError) or failure description (KindUnknown).
	Detail string `json:"detail,omitempty"`

	// Attempts counts network attempts made for this call.
	Attempts int `json:"attempts"`
}

// OK reports whether the outcome carries generated text.
func (o Outcome) OK() bool {
	return o.Kind == KindReply
}

// String renders the caller-facing reply text.
func (o Outcome) String() string {
	switch o.Kind {
	case KindReply:
		return o.Text
	case KindInvalidInput:
		return MsgInvalidInput
	case KindHTTPError:
		return fmt.Sprintf(msgHTTPErrorFormat, o.Status)
	case KindSafetyBlocked:
		return MsgSafetyBlocked
	case KindRecitationBlocked:
		return MsgRecitationBlocked
	case KindEmptyReply:
		return MsgEmptyReply
	case KindQuotaExceeded:
		return MsgQuotaExceeded
	case KindAPIError:
		detail := o.Detail
		if detail == "" {
			detail = defaultAPIErrorMessage
		}
		return fmt.Sprintf(msgAPIErrorFormat, detail)
	case KindUnexpectedResponse:
		return MsgUnexpectedResponse
	case KindExhausted:
		return MsgExhausted
	default:
		return fmt.Sprintf(msgUnknownFormat, o.Detail)
	}
}
