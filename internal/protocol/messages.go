// Package protocol defines the push-channel envelopes exchanged with
// clients. Both directions use a self-describing tagged envelope; the
// tick state payload inside it is module-defined, the envelope is not.
package protocol

import "encoding/json"

// Client → server message types.
const (
	TypeSubscribe = "subscribe"
	TypeIntent    = "intent"
)

// Server → client message types.
const (
	TypeSubscribed     = "subscribed"
	TypeIntentReceived = "intent_received"
	TypeTick           = "tick"
	TypeError          = "error"
)

// ClientMessage is the inbound envelope. Data stays opaque: the
// framework forwards intent payloads without looking inside.
type ClientMessage struct {
	Type   string          `json:"type"`
	ZoneID string          `json:"zone_id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Subscribed acknowledges a zone subscription.
type Subscribed struct {
	Type   string `json:"type"`
	ZoneID string `json:"zone_id"`
}

// NewSubscribed builds a subscription acknowledgement.
func NewSubscribed(zoneID string) Subscribed {
	return Subscribed{Type: TypeSubscribed, ZoneID: zoneID}
}

// IntentReceived acknowledges a durably enqueued intent.
type IntentReceived struct {
	Type string `json:"type"`
}

// NewIntentReceived builds an intent acknowledgement.
func NewIntentReceived() IntentReceived {
	return IntentReceived{Type: TypeIntentReceived}
}

// Tick carries one filtered state snapshot to one subscriber.
type Tick struct {
	Type       string `json:"type"`
	TickNumber uint64 `json:"tick_number"`
	State      any    `json:"state"`
}

// NewTick builds a tick envelope.
func NewTick(tickNumber uint64, state any) Tick {
	return Tick{Type: TypeTick, TickNumber: tickNumber, State: state}
}

// Error reports a non-fatal problem to the client.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError builds an error envelope.
func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}
