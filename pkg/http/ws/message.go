package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypePing         = "ping"
	TypeRequestState = "request_state"

	// Server -> Client
	TypeSessionUpdate = "session_update"
	TypeSubmission    = "submission"
	TypeSessionClosed = "session_closed"
	TypePong          = "pong"
	TypeError         = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: data}, nil
}

// SessionUpdatePayload carries the trigger of a pushed session state.
type SessionUpdatePayload struct {
	SessionID string          `json:"session_id"`
	Reason    string          `json:"reason"`
	Session   json.RawMessage `json:"session"`
}

type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
