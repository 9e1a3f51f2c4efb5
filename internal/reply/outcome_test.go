package reply

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutcomeString(t *testing.T) {
	cases := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{"reply", Outcome{Kind: KindReply, Text: "  Hello!\n"}, "  Hello!\n"},
		{"invalid input", Outcome{Kind: KindInvalidInput}, "Please provide a message."},
		{"http error", Outcome{Kind: KindHTTPError, Status: "ServiceUnavailable"},
			"❌ API request failed: ServiceUnavailable. Please try again in a few minutes."},
		{"safety", Outcome{Kind: KindSafetyBlocked}, "❌ I can't provide a response to that request due to safety guidelines."},
		{"recitation", Outcome{Kind: KindRecitationBlocked}, "❌ I can't provide that response due to content policy."},
		{"empty", Outcome{Kind: KindEmptyReply}, "❌ Received empty response from AI. Please try again."},
		{"quota", Outcome{Kind: KindQuotaExceeded, Detail: "quota exceeded"},
			"❌ Daily quota exceeded. Please try again tomorrow or check your API usage."},
		{"api error", Outcome{Kind: KindAPIError, Detail: "Invalid argument"}, "❌ API Error: Invalid argument"},
		{"api error default", Outcome{Kind: KindAPIError}, "❌ API Error: Unknown error"},
		{"unexpected", Outcome{Kind: KindUnexpectedResponse}, "❌ Unexpected response from AI. Please try again."},
		{"exhausted", Outcome{Kind: KindExhausted}, "❌ Service temporarily unavailable. Please try again in a few minutes."},
		{"unknown", Outcome{Kind: KindUnknown, Detail: "context canceled"}, "❌ Error: context canceled"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.outcome.String())
		})
	}
}

func TestOutcomeOK(t *testing.T) {
	require.True(t, Outcome{Kind: KindReply}.OK())
	require.False(t, Outcome{Kind: KindExhausted}.OK())
}

func TestKindMarshalsAsName(t *testing.T) {
	data, err := json.Marshal(Outcome{Kind: KindQuotaExceeded, Attempts: 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"quota_exceeded","attempts":1}`, string(data))

	require.Equal(t, "kind(99)", Kind(99).String())
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("safety_blocked")
	require.NoError(t, err)
	require.Equal(t, KindSafetyBlocked, kind)

	_, err = ParseKind("nope")
	require.Error(t, err)

	var decoded Outcome
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"exhausted","attempts":4}`), &decoded))
	require.Equal(t, KindExhausted, decoded.Kind)
}
