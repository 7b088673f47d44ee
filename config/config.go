// Package config loads agent and company definitions from YAML files.
// Handlers are configured by name and resolved against a Registry at load
// time, so the same file works across runtimes that register different
// prism and beam implementations.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/luxworks/lux/agent"
	"github.com/luxworks/lux/company"
	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/model"
)

// File is the top-level YAML document.
type File struct {
	Agents    []AgentConfig   `yaml:"agents"`
	Companies []CompanyConfig `yaml:"companies"`
}

// AgentConfig is the durable YAML shape of one agent definition.
type AgentConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Goal        string `yaml:"goal"`

	// Prisms and Beams name registered handlers.
	Prisms []string     `yaml:"prisms"`
	Beams  []string     `yaml:"beams"`
	Lenses []LensConfig `yaml:"lenses"`

	SignalHandlers []SignalHandlerConfig `yaml:"signal_handlers"`

	LLM    *LLMConfig    `yaml:"llm"`
	Memory *MemoryConfig `yaml:"memory"`

	ScheduledActions []ScheduledActionConfig `yaml:"scheduled_actions"`
}

// LLMConfig mirrors model.Config. The api key is never stored in the file;
// APIKeyEnv names the environment variable to read it from.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	APIKeyEnv   string  `yaml:"api_key_env"`
}

// MemoryConfig names the memory instance. The backend store is supplied by
// the runtime, not the file.
type MemoryConfig struct {
	Name string `yaml:"name"`
}

// LensConfig is the YAML shape of a read-only data source descriptor.
type LensConfig struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	URL         string            `yaml:"url"`
	Method      string            `yaml:"method"`
	Params      map[string]string `yaml:"params"`
}

// SignalHandlerConfig binds an accepted schema to a registered handler
// name.
type SignalHandlerConfig struct {
	Schema  string `yaml:"schema"`
	Handler string `yaml:"handler"`
}

// ScheduledActionConfig registers a recurring action. Intervals and
// timeouts are given in seconds; Cron takes precedence over EverySeconds
// when both are set.
type ScheduledActionConfig struct {
	Name           string         `yaml:"name"`
	Handler        string         `yaml:"handler"`
	EverySeconds   int            `yaml:"every_seconds"`
	Cron           string         `yaml:"cron"`
	Input          map[string]any `yaml:"input"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`
}

// CompanyConfig is the YAML shape of one company definition.
type CompanyConfig struct {
	Name       string            `yaml:"name"`
	Mission    string            `yaml:"mission"`
	Module     string            `yaml:"module"`
	CEO        RoleConfig        `yaml:"ceo"`
	Roles      []RoleConfig      `yaml:"roles"`
	Objectives []ObjectiveConfig `yaml:"objectives"`
}

// RoleConfig describes a seat. Type defaults to member (the ceo block is
// always the ceo seat).
type RoleConfig struct {
	ID           string   `yaml:"id"`
	Type         string   `yaml:"type"`
	Name         string   `yaml:"name"`
	Goal         string   `yaml:"goal"`
	Capabilities []string `yaml:"capabilities"`
}

// ObjectiveConfig describes a pending objective.
type ObjectiveConfig struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	SuccessCriteria string   `yaml:"success_criteria"`
	Steps           []string `yaml:"steps"`
}

// Load reads and parses one YAML file.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document. Unknown fields are rejected so typos fail
// loudly instead of silently configuring nothing.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg File
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Registry maps handler names to implementations for resolution.
type Registry struct {
	handlers map[string]core.Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]core.Handler)}
}

// Register adds a handler under its own name. Later registrations shadow
// earlier ones.
func (r *Registry) Register(h core.Handler) *Registry {
	r.handlers[h.Name()] = h
	return r
}

// Lookup resolves a handler by name.
func (r *Registry) Lookup(name string) (core.Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) resolve(name string, kind core.HandlerKind) (core.Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("handler %q is not registered", name)
	}
	if h.Kind() != kind {
		return nil, fmt.Errorf("handler %q is a %s, expected a %s", name, h.Kind(), kind)
	}
	return h, nil
}

// ToDefinition resolves the config against the registry and returns a
// validated agent definition.
func (c AgentConfig) ToDefinition(reg *Registry) (agent.Definition, error) {
	def := agent.Definition{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Goal:        c.Goal,
	}

	for _, name := range c.Prisms {
		h, err := reg.resolve(name, core.HandlerKindPrism)
		if err != nil {
			return agent.Definition{}, fmt.Errorf("agent %s: %w", c.Name, err)
		}
		def.Prisms = append(def.Prisms, h)
	}
	for _, name := range c.Beams {
		h, err := reg.resolve(name, core.HandlerKindBeam)
		if err != nil {
			return agent.Definition{}, fmt.Errorf("agent %s: %w", c.Name, err)
		}
		def.Beams = append(def.Beams, h)
	}
	for _, lens := range c.Lenses {
		def.Lenses = append(def.Lenses, core.Lens{
			Name:        lens.Name,
			Description: lens.Description,
			URL:         lens.URL,
			Method:      lens.Method,
			Params:      lens.Params,
		})
	}

	for _, sh := range c.SignalHandlers {
		h, ok := reg.Lookup(sh.Handler)
		if !ok {
			return agent.Definition{}, fmt.Errorf("agent %s: signal handler %q is not registered", c.Name, sh.Handler)
		}
		def.SignalHandlers = append(def.SignalHandlers, agent.SignalHandler{
			SchemaID: sh.Schema,
			Handler:  h,
		})
	}

	if c.LLM != nil {
		def.LLM = model.Config{
			Provider:    c.LLM.Provider,
			Model:       c.LLM.Model,
			Temperature: c.LLM.Temperature,
			MaxTokens:   c.LLM.MaxTokens,
		}
		if c.LLM.APIKeyEnv != "" {
			def.LLM.APIKey = os.Getenv(c.LLM.APIKeyEnv)
		}
	}

	if c.Memory != nil {
		def.Memory = &agent.MemoryConfig{Name: c.Memory.Name}
	}

	for _, action := range c.ScheduledActions {
		h, ok := reg.Lookup(action.Handler)
		if !ok {
			return agent.Definition{}, fmt.Errorf("agent %s: scheduled action %q: handler %q is not registered",
				c.Name, action.Name, action.Handler)
		}
		def.ScheduledActions = append(def.ScheduledActions, agent.ScheduledAction{
			Name:    action.Name,
			Handler: h,
			Every:   time.Duration(action.EverySeconds) * time.Second,
			Cron:    action.Cron,
			Input:   action.Input,
			Timeout: time.Duration(action.TimeoutSeconds) * time.Second,
		})
	}

	if err := def.Validate(); err != nil {
		return agent.Definition{}, err
	}
	return def, nil
}

// ToCompany builds the company aggregate described by the config.
func (c CompanyConfig) ToCompany(optFns ...func(b *company.Builder)) (company.Company, error) {
	b := company.NewBuilder(c.Name).
		WithMission(c.Mission).
		WithModule(c.Module).
		WithCEO(c.CEO.toRole())
	for _, fn := range optFns {
		fn(b)
	}
	for _, role := range c.Roles {
		b.WithRole(role.toRole())
	}
	for _, obj := range c.Objectives {
		b.WithObjective(company.Objective{
			ID:              obj.ID,
			Name:            obj.Name,
			Description:     obj.Description,
			SuccessCriteria: obj.SuccessCriteria,
			Steps:           obj.Steps,
			Status:          company.StatusPending,
		})
	}
	return b.Build()
}

func (r RoleConfig) toRole() company.Role {
	return company.Role{
		ID:           r.ID,
		Type:         company.RoleType(r.Type),
		Name:         r.Name,
		Goal:         r.Goal,
		Capabilities: r.Capabilities,
	}
}
