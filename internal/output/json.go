package output

import (
	"encoding/json"
	"time"
)

type replyJSON struct {
	ReplyDocument
	DurationMS int64 `json:"duration_ms"`
}

func formatReplyJSON(doc ReplyDocument) (string, error) {
	return JSON(replyJSON{ReplyDocument: doc, DurationMS: doc.Duration.Milliseconds()})
}

// JSON renders v as indented JSON.
func JSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type throttleJSON struct {
	Endpoint      string    `json:"endpoint"`
	LastRequestAt time.Time `json:"last_request_at"`
}

type replyLogJSON struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id,omitempty"`
	Kind       string    `json:"kind"`
	Attempts   int       `json:"attempts"`
	StatusCode int       `json:"status_code,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
