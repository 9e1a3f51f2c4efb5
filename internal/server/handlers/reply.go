package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/replykit/replykit/internal/errors"
	"github.com/replykit/replykit/internal/reply"
	"github.com/replykit/replykit/internal/server/middleware"
)

// MaxReplyBodyBytes bounds the POST /v1/reply body.
const MaxReplyBodyBytes = 64 << 10

// Replier produces a reply outcome for one message.
type Replier interface {
	Generate(ctx context.Context, userInput string) reply.Outcome
}

// ReplyRequest is the POST /v1/reply body.
type ReplyRequest struct {
	Message string `json:"message"`
}

// ReplyResponse carries the rendered reply and how it was produced. Failures
// of the upstream call are still 200 responses; Kind tells them apart.
type ReplyResponse struct {
	Reply     string     `json:"reply"`
	Kind      reply.Kind `json:"kind"`
	Attempts  int        `json:"attempts"`
	RequestID string     `json:"request_id,omitempty"`
}

// ReplyHandler serves POST /v1/reply.
type ReplyHandler struct {
	replier Replier
}

// NewReplyHandler returns a handler backed by replier.
func NewReplyHandler(replier Replier) *ReplyHandler {
	return &ReplyHandler{replier: replier}
}

func (h *ReplyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.replier == nil {
		apperrors.RespondWithError(w, r, apperrors.NewServiceUnavailableError("reply client not configured"))
		return
	}

	var req ReplyRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxReplyBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.RespondWithError(w, r, apperrors.WrapTooLarge(r.Context(), err, "request body too large"))
			return
		}
		apperrors.RespondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body must be a JSON object with a message field"))
		return
	}

	outcome := h.replier.Generate(r.Context(), req.Message)
	middleware.SetOutcomeKind(r.Context(), outcome.Kind.String())

	writeJSON(w, http.StatusOK, ReplyResponse{
		Reply:     outcome.String(),
		Kind:      outcome.Kind,
		Attempts:  outcome.Attempts,
		RequestID: reply.RequestIDFromContext(r.Context()),
	})
}
