package stream

import (
	"encoding/json"
	"time"
)

// Frame is the wire envelope for every message the gateway sends over the
// WebSocket connection; inbound messages decode into controlFrame. Every
// outbound frame carries
// a Unix-millisecond Timestamp; newFrame backfills one when the caller
// doesn't supply an event's own timestamp.
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// controlFrame is the inbound shape for subscribe/unsubscribe/ping
// control messages a client sends after connecting, mirroring the
// reference streaming server's action/channel protocol.
type controlFrame struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// connectionFrame is sent once, immediately after the handshake.
type connectionFrame struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// subscriptionFrame acknowledges a subscribe/unsubscribe control frame.
type subscriptionFrame struct {
	Status  string `json:"status"`
	Channel string `json:"channel"`
}

// errorFrame reports a malformed inbound message.
type errorFrame struct {
	Message string `json:"message"`
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

// newFrame builds a frame for frameType/payload. ts is the event's own
// Unix-millisecond timestamp if it has one; pass 0 to have the gateway
// stamp the current time, which is what every control frame does.
func newFrame(frameType string, payload any, ts int64) Frame {
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	return Frame{Type: frameType, Data: mustMarshal(payload), Timestamp: ts}
}
