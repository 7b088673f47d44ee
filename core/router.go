package core

import "context"

// Router delivers signals between agents and correlation subscribers.
//
// Implementations MUST:
//   - Deliver a routed signal with a non-empty ReplyTo to every subscriber
//     registered for that correlation id.
//   - Deliver a routed signal with a Recipient to that agent's mailbox if the
//     agent is known, returning an error when it is not (unless a correlation
//     subscriber already consumed the signal).
//   - Never block Route on a slow consumer; delivery is asynchronous.
//
// The in-process implementation lives in the hub package. Cross-process
// routers (the wire-level hub) implement the same contract elsewhere.
type Router interface {
	// Subscribe registers interest in replies correlated to the given id.
	// It returns a receive channel and a cancel function releasing the
	// subscription. Subscribe before sending the request to avoid losing a
	// fast reply.
	Subscribe(correlationID string) (<-chan Signal, func())

	// Route sends a signal. A returned error means the signal was not
	// delivered anywhere.
	Route(ctx context.Context, sig Signal) error
}

// AgentRef identifies the agent bound to a role: a local agent id, or a
// remote (external id, hub) pair when Hub is non-empty.
type AgentRef struct {
	ID  string `json:"id"`
	Hub string `json:"hub,omitempty"`
}

// Remote reports whether the reference points at an agent on a named hub.
func (r AgentRef) Remote() bool { return r.Hub != "" }

// IsZero reports whether the reference is unset.
func (r AgentRef) IsZero() bool { return r.ID == "" && r.Hub == "" }

// LocalRef builds a reference to an agent in this process.
func LocalRef(id string) AgentRef { return AgentRef{ID: id} }

// RemoteRef builds a reference to an agent reachable via the named hub.
func RemoteRef(id, hub string) AgentRef { return AgentRef{ID: id, Hub: hub} }
