package daemon

import (
	"encoding/json"
)

// PayloadKind discriminates what a daemon response body contained.
type PayloadKind int

const (
	// PayloadEmpty means the response had no body (e.g. 204).
	PayloadEmpty PayloadKind = iota
	// PayloadJSON means the response declared and contained valid JSON.
	PayloadJSON
	// PayloadText means the response body was plain text.
	PayloadText
)

// Payload is a successful daemon response body, tagged by content kind.
// Callers decide per operation whether they need JSON, text, or nothing.
type Payload struct {
	kind PayloadKind
	raw  []byte
}

// EmptyPayload returns the empty payload.
func EmptyPayload() Payload {
	return Payload{kind: PayloadEmpty}
}

// JSONPayload wraps raw bytes already validated as JSON.
func JSONPayload(raw []byte) Payload {
	return Payload{kind: PayloadJSON, raw: raw}
}

// TextPayload wraps a plain-text body.
func TextPayload(raw []byte) Payload {
	return Payload{kind: PayloadText, raw: raw}
}

// Kind returns the payload's content kind.
func (p Payload) Kind() PayloadKind {
	return p.kind
}

// IsEmpty reports whether the payload carries no body.
func (p Payload) IsEmpty() bool {
	return p.kind == PayloadEmpty
}

// Text returns the body as a string. Empty payloads yield "".
func (p Payload) Text() string {
	return string(p.raw)
}

// Decode unmarshals a JSON payload into v. Non-JSON payloads yield a
// MalformedResponseError so callers that require structure fail uniformly.
func (p Payload) Decode(v any) error {
	if p.kind != PayloadJSON {
		return NewMalformedResponseError("expected JSON body", nil)
	}
	if err := json.Unmarshal(p.raw, v); err != nil {
		return NewMalformedResponseError("failed to decode JSON body", err)
	}
	return nil
}
