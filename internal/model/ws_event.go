package model

import "encoding/json"

// Event types carried over the delivery channel.
const (
	// Client -> server
	EventSend = "send"
	EventPing = "ping"

	// Server -> client
	EventPong          = "pong"
	EventTypingStarted = "typing_started"
	EventTypingStopped = "typing_stopped"
	EventStreamChunk   = "stream_chunk"
	EventError         = "error"
	EventNotice        = "notice"
)

type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SendRequest is the payload of a client "send" event.
type SendRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// StreamChunk carries a cumulative prefix of the assistant reply. The final
// chunk repeats the full reply with IsFinal set.
type StreamChunk struct {
	Content string `json:"content"`
	IsFinal bool   `json:"is_final"`
}

// ErrorEvent surfaces a RelayError to the client.
type ErrorEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Notice is a service-wide announcement pushed by an operator.
type Notice struct {
	Message string `json:"message"`
}

// NewEvent wraps a payload in a WSEvent envelope. Payloads are our own types,
// so a marshal failure is a programming error; the data is dropped like the
// hub does on broadcast.
func NewEvent(eventType string, payload interface{}) *WSEvent {
	ev := &WSEvent{Type: eventType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return ev
		}
		ev.Data = data
	}
	return ev
}
