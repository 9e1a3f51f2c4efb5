package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/replykit/replykit/internal/errors"
	"github.com/replykit/replykit/internal/reply"
)

type stubReplier struct {
	outcome reply.Outcome
	got     []string
}

func (s *stubReplier) Generate(_ context.Context, input string) reply.Outcome {
	s.got = append(s.got, input)
	return s.outcome
}

func postReply(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/reply", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestReplyHandlerReturnsReply(t *testing.T) {
	replier := &stubReplier{outcome: reply.Outcome{Kind: reply.KindReply, Text: "Hello!", Attempts: 1}}

	rec := postReply(t, NewReplyHandler(replier), `{"message":"hi there"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"hi there"}, replier.got)

	var resp ReplyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "Hello!", resp.Reply)
	require.Equal(t, reply.KindReply, resp.Kind)
	require.Equal(t, 1, resp.Attempts)
}

func TestReplyHandlerRendersFailureOutcomes(t *testing.T) {
	replier := &stubReplier{outcome: reply.Outcome{Kind: reply.KindExhausted, Attempts: 4}}

	rec := postReply(t, NewReplyHandler(replier), `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	require.Equal(t, reply.MsgExhausted, raw["reply"])
	require.Equal(t, "exhausted", raw["kind"])
	require.Equal(t, float64(4), raw["attempts"])
}

func TestReplyHandlerPassesEmptyMessageThrough(t *testing.T) {
	replier := &stubReplier{outcome: reply.Outcome{Kind: reply.KindInvalidInput}}

	rec := postReply(t, NewReplyHandler(replier), `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{""}, replier.got)
}

func TestReplyHandlerRejectsInvalidJSON(t *testing.T) {
	replier := &stubReplier{}

	rec := postReply(t, NewReplyHandler(replier), `{"message":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, replier.got)

	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, apperrors.CodeInvalidInput, resp.Error.Code)
}

func TestReplyHandlerRejectsOversizedBody(t *testing.T) {
	replier := &stubReplier{}
	body := `{"message":"` + strings.Repeat("a", MaxReplyBodyBytes) + `"}`

	rec := postReply(t, NewReplyHandler(replier), body)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Empty(t, replier.got)
}

func TestReplyHandlerWithoutClient(t *testing.T) {
	rec := postReply(t, NewReplyHandler(nil), `{"message":"hi"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
