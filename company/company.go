// Package company implements the company orchestrator: the Role/Objective
// model as pure data plus transition functions, and the Company actor that
// serializes every mutation through a single mailbox and gates objective
// completion behind the CEO's evaluation.
package company

// Company is the aggregate root: one CEO role, member roles, tracked
// objectives and free-form plans. It is owned exclusively by its Actor; all
// external access goes through actor operations so reads and writes stay
// linearized.
type Company struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Mission string `json:"mission,omitempty"`

	// Module references the defining module or template this company was
	// built from, if any.
	Module string `json:"module,omitempty"`

	CEO        Role           `json:"ceo"`
	Roles      []Role         `json:"roles,omitempty"`
	Objectives []Objective    `json:"objectives,omitempty"`
	Plans      map[string]any `json:"plans,omitempty"`
}

// AllRoles returns the CEO followed by the member roles.
func (c *Company) AllRoles() []Role {
	out := make([]Role, 0, len(c.Roles)+1)
	out = append(out, c.CEO)
	out = append(out, c.Roles...)
	return out
}

// findRole locates a role by id, CEO included. Returns a pointer into the
// company, so only the owning actor may call it.
func (c *Company) findRole(id string) *Role {
	if c.CEO.ID == id {
		return &c.CEO
	}
	for i := range c.Roles {
		if c.Roles[i].ID == id {
			return &c.Roles[i]
		}
	}
	return nil
}

// findObjective locates an objective by id. Same ownership rule as
// findRole.
func (c *Company) findObjective(id string) *Objective {
	for i := range c.Objectives {
		if c.Objectives[i].ID == id {
			return &c.Objectives[i]
		}
	}
	return nil
}

// hasAgent reports whether any role's agent reference matches the id.
func (c *Company) hasAgent(agentID string) bool {
	for _, role := range c.AllRoles() {
		if !role.Agent.IsZero() && role.Agent.ID == agentID {
			return true
		}
	}
	return false
}
