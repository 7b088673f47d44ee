package company

import (
	"fmt"

	"github.com/luxworks/lux/core"
)

// Builder assembles a Company from explicit configuration. Ids left empty
// are minted at Build time.
type Builder struct {
	company Company
	idgen   core.IdentifierGenerator
	errs    []error
}

// NewBuilder starts a company definition.
func NewBuilder(name string) *Builder {
	return &Builder{
		company: Company{Name: name},
		idgen:   core.UUIDGenerator{},
	}
}

// WithIDGenerator overrides id minting for roles and objectives without
// explicit ids.
func (b *Builder) WithIDGenerator(g core.IdentifierGenerator) *Builder {
	if g != nil {
		b.idgen = g
	}
	return b
}

// WithMission sets the company mission statement.
func (b *Builder) WithMission(mission string) *Builder {
	b.company.Mission = mission
	return b
}

// WithModule records the defining module or template name.
func (b *Builder) WithModule(module string) *Builder {
	b.company.Module = module
	return b
}

// WithCEO defines the single approving seat. Calling it twice is a build
// error.
func (b *Builder) WithCEO(role Role) *Builder {
	if b.company.CEO.Name != "" {
		b.errs = append(b.errs, fmt.Errorf("ceo role defined twice"))
		return b
	}
	role.Type = RoleCEO
	b.company.CEO = role
	return b
}

// WithRole adds a member seat. Roles without a type default to member.
func (b *Builder) WithRole(role Role) *Builder {
	if role.Type == "" {
		role.Type = RoleMember
	}
	if role.Type == RoleCEO {
		b.errs = append(b.errs, fmt.Errorf("role %q: use WithCEO for the ceo seat", role.Name))
		return b
	}
	b.company.Roles = append(b.company.Roles, role)
	return b
}

// WithObjective adds a pending objective.
func (b *Builder) WithObjective(obj Objective) *Builder {
	if obj.Status == "" {
		obj.Status = StatusPending
	}
	if obj.Status != StatusPending {
		b.errs = append(b.errs, fmt.Errorf("objective %q: must start pending, got %q", obj.Name, obj.Status))
		return b
	}
	b.company.Objectives = append(b.company.Objectives, obj)
	return b
}

// WithPlan attaches a named free-form plan.
func (b *Builder) WithPlan(name string, plan any) *Builder {
	if b.company.Plans == nil {
		b.company.Plans = make(map[string]any)
	}
	b.company.Plans[name] = plan
	return b
}

// Build validates the definition and returns the company value, ready to
// hand to NewActor.
func (b *Builder) Build() (Company, error) {
	if len(b.errs) > 0 {
		return Company{}, b.errs[0]
	}
	c := b.company
	if c.Name == "" {
		return Company{}, fmt.Errorf("company name is required")
	}
	if c.CEO.Name == "" {
		return Company{}, fmt.Errorf("company %q has no ceo role", c.Name)
	}

	if c.CEO.ID == "" {
		c.CEO.ID = b.idgen.NewID()
	}
	seen := map[string]string{c.CEO.ID: c.CEO.Name}
	for i := range c.Roles {
		role := &c.Roles[i]
		if role.Name == "" {
			return Company{}, fmt.Errorf("company %q has a role without a name", c.Name)
		}
		if role.ID == "" {
			role.ID = b.idgen.NewID()
		}
		if other, dup := seen[role.ID]; dup {
			return Company{}, fmt.Errorf("duplicate role id %q (%q and %q)", role.ID, other, role.Name)
		}
		seen[role.ID] = role.Name
	}

	seenObj := map[string]string{}
	for i := range c.Objectives {
		obj := &c.Objectives[i]
		if obj.Name == "" {
			return Company{}, fmt.Errorf("company %q has an objective without a name", c.Name)
		}
		if obj.ID == "" {
			obj.ID = b.idgen.NewID()
		}
		if other, dup := seenObj[obj.ID]; dup {
			return Company{}, fmt.Errorf("duplicate objective id %q (%q and %q)", obj.ID, other, obj.Name)
		}
		seenObj[obj.ID] = obj.Name
	}

	return c, nil
}
