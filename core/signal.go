package core

import "time"

// Signal is an addressed, schema-tagged message exchanged between agents.
//
// Signals travel through a Router (see router.go). Request/response style
// exchanges correlate replies by setting ReplyTo to the originating signal's
// ID; the protocol package builds on this.
type Signal struct {
	// ID uniquely identifies this signal. Generated by the sender's
	// IdentifierGenerator when empty.
	ID string `json:"id"`

	// SchemaID names the schema this signal's payload conforms to. Agents
	// accept a declared set of schemas; signals with an unknown schema are
	// logged and dropped, never an error.
	SchemaID string `json:"schema_id"`

	// Payload carries the schema-shaped content.
	Payload map[string]any `json:"payload"`

	// Sender identifies the originating agent (or an ephemeral requester id
	// for protocol exchanges).
	Sender string `json:"sender"`

	// Recipient identifies the destination agent. May be empty for pure
	// reply signals, which are routed by correlation instead.
	Recipient string `json:"recipient"`

	// ReplyTo holds the ID of the signal this one answers. Routers deliver
	// signals with a ReplyTo to matching correlation subscribers.
	ReplyTo string `json:"reply_to,omitempty"`

	// Hub optionally names the hub the recipient lives on. Empty means the
	// sender's default hub.
	Hub string `json:"hub,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Reply constructs a response signal to s carrying the given payload. The
// reply is correlated via ReplyTo and addressed back to the sender.
func (s Signal) Reply(id string, payload map[string]any) Signal {
	return Signal{
		ID:        id,
		SchemaID:  s.SchemaID,
		Payload:   payload,
		Sender:    s.Recipient,
		Recipient: s.Sender,
		ReplyTo:   s.ID,
		Hub:       s.Hub,
		Timestamp: time.Now(),
	}
}

// SignalSchema describes a signal payload shape an agent is willing to
// receive. Fields maps field names to a free-form type description; the
// runtime does not enforce payload shapes, schemas are routing keys plus
// documentation.
type SignalSchema struct {
	ID          string            `json:"id"`
	Description string            `json:"description,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}
