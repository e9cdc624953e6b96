package websocket

import "encoding/json"

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventActivity Event = "activity"
	EventPong     Event = "pong"
)

// ActivityMessage wraps one group activity event for the client. Payload is
// the JSON-encoded service.GroupEvent exactly as published to Redis.
type ActivityMessage struct {
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent before the server closes a misbehaving connection.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
