package company

import "github.com/luxworks/lux/core"

// RoleType distinguishes the seats inside a company.
type RoleType string

const (
	// RoleCEO is the single approving seat; every company has exactly one.
	RoleCEO RoleType = "ceo"
	// RoleMember is a regular seat.
	RoleMember RoleType = "member"
	// RoleContractor is reserved; it parses and stores but carries no
	// behavior yet.
	RoleContractor RoleType = "contractor"
)

// Role is a named, capability-bearing seat in a company, optionally bound
// to an agent.
type Role struct {
	Type RoleType `json:"type"`
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Goal string   `json:"goal,omitempty"`

	// Capabilities are free-text permission tags, fixed at creation.
	Capabilities []string `json:"capabilities,omitempty"`

	// Agent is the bound agent reference (zero when the seat is vacant):
	// a local id, or a remote (external id, hub) pair.
	Agent core.AgentRef `json:"agent,omitempty"`

	// Hub names the router to reach a remote agent through. Re-derived
	// from the agent reference on assignment.
	Hub string `json:"hub,omitempty"`
}

// WithAgent binds an agent reference to the role, re-deriving the stored
// hub from the reference's shape (remote references carry their hub, local
// ones clear it).
func (r Role) WithAgent(ref core.AgentRef) Role {
	r.Agent = ref
	r.Hub = ref.Hub
	return r
}
