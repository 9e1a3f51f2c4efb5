package reply

import (
	"strings"

	"github.com/replykit/replykit/internal/ailink/driver/gemini"
)

// interpret maps a decoded generateContent body to an outcome.
func interpret(resp *gemini.GenerateContentResponse) Outcome {
	if resp == nil {
		return Outcome{Kind: KindUnexpectedResponse}
	}

	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		switch candidate.FinishReason {
		case gemini.FinishReasonSafety:
			return Outcome{Kind: KindSafetyBlocked}
		case gemini.FinishReasonRecitation:
			return Outcome{Kind: KindRecitationBlocked}
		}

		if text, ok := candidate.FirstText(); ok && strings.TrimSpace(text) != "" {
			return Outcome{Kind: KindReply, Text: text}
		}
		return Outcome{Kind: KindEmptyReply}
	}

	if resp.Error != nil {
		message := defaultAPIErrorMessage
		if resp.Error.Message != nil {
			message = *resp.Error.Message
		}
		if strings.Contains(message, "quota") || strings.Contains(message, "limit") {
			return Outcome{Kind: KindQuotaExceeded, Detail: message}
		}
		return Outcome{Kind: KindAPIError, Detail: message}
	}

	return Outcome{Kind: KindUnexpectedResponse}
}
