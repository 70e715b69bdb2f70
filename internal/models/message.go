package models

import "encoding/json"

// MessageType discriminates frames on the signaling socket.
type MessageType string

const (
	// Client-originated frames.
	TypeSignal  MessageType = "signal"
	TypeControl MessageType = "control"

	// Server-originated frames.
	TypeWelcome MessageType = "welcome"
	TypePeers   MessageType = "peers"
	TypeError   MessageType = "error"
)

// ErrorCode identifies a non-fatal or fatal relay error sent to a client.
type ErrorCode string

const (
	CodeDuplicateID    ErrorCode = "duplicate-id"
	CodeUnknownTarget  ErrorCode = "unknown-target"
	CodeDeliveryFailed ErrorCode = "delivery-failed"
	CodeRateExceeded   ErrorCode = "rate-exceeded"
	CodeBadMessage     ErrorCode = "bad-message"
)

// Envelope is the wire frame exchanged on a signaling session. The
// payload is opaque to the relay; only the envelope fields are used
// for routing.
type Envelope struct {
	Type    MessageType     `json:"type"`
	From    string          `json:"from,omitempty"`
	Target  string          `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Code    ErrorCode       `json:"code,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ControlRequest is the payload of a control frame.
type ControlRequest struct {
	Op string `json:"op"`
}

const (
	ControlOpPeers = "peers"
	ControlOpLeave = "leave"
)

// WelcomePayload acknowledges registration and carries the assigned id.
type WelcomePayload struct {
	PeerID    string `json:"peerId"`
	PeerCount int    `json:"peerCount"`
}

// PeerListPayload answers a peers control request.
type PeerListPayload struct {
	Peers []string `json:"peers"`
	Count int      `json:"count"`
}
