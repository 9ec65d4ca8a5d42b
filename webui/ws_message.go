package webui

import (
	"encoding/json"
	"time"

	"juliaform/constraints"
	"juliaform/form"
)

// Message types, client to server.
const (
	MessageTypeFieldChange = "field_change"
	MessageTypeGenerate    = "generate"
)

// Message types, server to client.
const (
	MessageTypeInitial    = "initial"
	MessageTypeFieldState = "field_state"
	MessageTypeImage      = "image"
	MessageTypeStatus     = "status"
	MessageTypeError      = "error"
)

// WSMessage is the envelope for every message sent to the browser.
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NewWSMessage stamps a message with the current time.
func NewWSMessage(msgType string, data interface{}) WSMessage {
	return WSMessage{Type: msgType, Timestamp: time.Now(), Data: data}
}

// InboundMessage is a message received from the browser; Data is decoded
// once Type is known.
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// FieldChangeData is sent when one input changes.
type FieldChangeData struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// GenerateData asks for a new image. Fields, when present, are applied to the
// form before the gate runs.
type GenerateData struct {
	Fields map[string]string `json:"fields,omitempty"`
}

// InitialData is sent once the session has loaded.
type InitialData struct {
	Fields      []form.Field         `json:"fields"`
	Constraints *constraints.Summary `json:"constraints,omitempty"`
}

// FieldStateData is a field's validation state.
type FieldStateData struct {
	Field   string `json:"field"`
	Invalid bool   `json:"invalid"`
	Message string `json:"message,omitempty"`
	Max     string `json:"max,omitempty"`
}

// ImageData carries new image markup.
type ImageData struct {
	Markup    string `json:"markup"`
	RequestID string `json:"request_id"`
}

// StatusData reports what a generate trigger did.
type StatusData struct {
	Outcome   string `json:"outcome"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorData is a server-side problem shown to the user.
type ErrorData struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error codes carried in ErrorData.
const (
	ErrorCodeBadMessage  = "bad_message"
	ErrorCodeUnknown     = "unknown_field"
	ErrorCodeConstraints = "constraints_unavailable"
	ErrorCodeRequest     = "request_failed"
)

func fieldState(fd form.Field) FieldStateData {
	return FieldStateData{Field: fd.Name, Invalid: fd.Invalid, Message: fd.Feedback, Max: fd.Max}
}

func newErrorMessage(code, message string) WSMessage {
	return NewWSMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}
