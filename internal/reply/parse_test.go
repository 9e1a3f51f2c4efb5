package reply

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/replykit/replykit/internal/ailink/driver/gemini"
)

func decode(t *testing.T, body string) *gemini.GenerateContentResponse {
	t.Helper()
	var resp gemini.GenerateContentResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return &resp
}

func TestInterpret(t *testing.T) {
	cases := []struct {
		name string
		body string
		kind Kind
		want string
	}{
		{
			name: "text",
			body: `{"candidates":[{"content":{"parts":[{"text":"Hello!"}]}}]}`,
			kind: KindReply,
			want: "Hello!",
		},
		{
			name: "safety wins over text",
			body: `{"candidates":[{"finishReason":"SAFETY","content":{"parts":[{"text":"ignored"}]}}]}`,
			kind: KindSafetyBlocked,
			want: MsgSafetyBlocked,
		},
		{
			name: "recitation",
			body: `{"candidates":[{"finishReason":"RECITATION"}]}`,
			kind: KindRecitationBlocked,
			want: MsgRecitationBlocked,
		},
		{
			name: "finish reason is case sensitive",
			body: `{"candidates":[{"finishReason":"safety","content":{"parts":[{"text":"ok"}]}}]}`,
			kind: KindReply,
			want: "ok",
		},
		{
			name: "whitespace text",
			body: `{"candidates":[{"finishReason":"STOP","content":{"parts":[{"text":"  \n"}]}}]}`,
			kind: KindEmptyReply,
			want: MsgEmptyReply,
		},
		{
			name: "no parts",
			body: `{"candidates":[{"content":{"parts":[]}}]}`,
			kind: KindEmptyReply,
			want: MsgEmptyReply,
		},
		{
			name: "no content",
			body: `{"candidates":[{}]}`,
			kind: KindEmptyReply,
			want: MsgEmptyReply,
		},
		{
			name: "quota",
			body: `{"error":{"message":"quota exceeded for today"}}`,
			kind: KindQuotaExceeded,
			want: MsgQuotaExceeded,
		},
		{
			name: "limit",
			body: `{"error":{"code":429,"message":"rate limit reached"}}`,
			kind: KindQuotaExceeded,
			want: MsgQuotaExceeded,
		},
		{
			name: "quota match is case sensitive",
			body: `{"error":{"message":"Quota Exceeded"}}`,
			kind: KindAPIError,
			want: "❌ API Error: Quota Exceeded",
		},
		{
			name: "api error",
			body: `{"error":{"message":"API key not valid"}}`,
			kind: KindAPIError,
			want: "❌ API Error: API key not valid",
		},
		{
			name: "api error without message",
			body: `{"error":{"code":400}}`,
			kind: KindAPIError,
			want: "❌ API Error: Unknown error",
		},
		{
			name: "empty candidates fall through to error",
			body: `{"candidates":[],"error":{"message":"bad request"}}`,
			kind: KindAPIError,
			want: "❌ API Error: bad request",
		},
		{
			name: "null candidates",
			body: `{"candidates":null}`,
			kind: KindUnexpectedResponse,
			want: MsgUnexpectedResponse,
		},
		{
			name: "unread fields of any type are ignored",
			body: `{"candidates":[{"content":{"parts":[{"text":"Hi"}]}}],"modelVersion":2}`,
			kind: KindReply,
			want: "Hi",
		},
		{
			name: "string error code",
			body: `{"error":{"code":"RESOURCE_EXHAUSTED","status":429,"message":"quota exceeded"}}`,
			kind: KindQuotaExceeded,
			want: MsgQuotaExceeded,
		},
		{
			name: "top level keys are case sensitive",
			body: `{"Candidates":[{"content":{"parts":[{"text":"Hi"}]}}],"ERROR":{"message":"quota"}}`,
			kind: KindUnexpectedResponse,
			want: MsgUnexpectedResponse,
		},
		{
			name: "finish reason key is case sensitive",
			body: `{"candidates":[{"FinishReason":"SAFETY","content":{"parts":[{"text":"ok"}]}}]}`,
			kind: KindReply,
			want: "ok",
		},
		{
			name: "text key is case sensitive",
			body: `{"candidates":[{"content":{"parts":[{"Text":"ok"}]}}]}`,
			kind: KindEmptyReply,
			want: MsgEmptyReply,
		},
		{
			name: "message key is case sensitive",
			body: `{"error":{"Message":"quota exceeded"}}`,
			kind: KindAPIError,
			want: "❌ API Error: Unknown error",
		},
		{
			name: "neither field",
			body: `{"promptFeedback":{"blockReason":"OTHER"}}`,
			kind: KindUnexpectedResponse,
			want: MsgUnexpectedResponse,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := interpret(decode(t, tc.body))
			require.Equal(t, tc.kind, outcome.Kind)
			require.Equal(t, tc.want, outcome.String())
		})
	}
}

func TestInterpretNil(t *testing.T) {
	require.Equal(t, KindUnexpectedResponse, interpret(nil).Kind)
}
