package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Finish reasons that block a candidate.
const (
	FinishReasonSafety     = "SAFETY"
	FinishReasonRecitation = "RECITATION"
)

// GenerateContentResponse is the decoded generateContent body. Either Candidates or
// Error is normally set; both may be empty for unexpected payloads.
//
// Only the members read by callers are decoded. Keys match case-sensitively and
// any other member is ignored whatever its type.
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
	Error      *APIError   `json:"error,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// Content holds the generated parts of a candidate.
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is a single piece of generated content.
type Part struct {
	Text *string `json:"text,omitempty"`
}

// APIError is the error object Gemini embeds in a response body.
type APIError struct {
	Message *string `json:"message,omitempty"`
}

// FirstText returns the text of the first part of the candidate, if present.
func (c Candidate) FirstText() (string, bool) {
	if c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0].Text == nil {
		return "", false
	}
	return *c.Content.Parts[0].Text, true
}

func (r *GenerateContentResponse) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*r = GenerateContentResponse{}
	if err := decodeMember(fields, "candidates", &r.Candidates); err != nil {
		return err
	}
	return decodeMember(fields, "error", &r.Error)
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*c = Candidate{}
	if err := decodeMember(fields, "finishReason", &c.FinishReason); err != nil {
		return err
	}
	return decodeMember(fields, "content", &c.Content)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*c = Content{}
	return decodeMember(fields, "parts", &c.Parts)
}

func (p *Part) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*p = Part{}
	return decodeMember(fields, "text", &p.Text)
}

func (e *APIError) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*e = APIError{}
	return decodeMember(fields, "message", &e.Message)
}

// objectFields splits a JSON object into its members keyed by exact name.
func objectFields(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// decodeMember decodes fields[name] into dst. Absent and null members leave dst
// untouched.
func decodeMember(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
