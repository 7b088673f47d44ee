package agent

import (
	"context"
	"fmt"

	"github.com/luxworks/lux/core"
	"github.com/luxworks/lux/model"
)

// DefaultMemoryContext is how many recent memory entries Chat prepends when
// memory use is requested without an explicit limit.
const DefaultMemoryContext = 5

// ChatOptions tune one Chat call.
type ChatOptions struct {
	// UseMemory prepends recent memory entries to the request and persists
	// the new exchange afterwards. Ignored when the agent has no memory.
	UseMemory bool

	// MaxMemoryContext caps how many entries are prepended. Defaults to
	// DefaultMemoryContext.
	MaxMemoryContext int
}

// Chat sends a user message through the agent's model and returns the
// normalized response text. The agent's behavior set travels with the
// request as its tool list. The call is serialized through the mailbox, so
// it observes and produces a consistent memory state.
func (a *Actor) Chat(ctx context.Context, message string, optFns ...func(o *ChatOptions)) (string, error) {
	opts := ChatOptions{MaxMemoryContext: DefaultMemoryContext}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxMemoryContext <= 0 {
		opts.MaxMemoryContext = DefaultMemoryContext
	}

	mailbox, done, ok := a.channels()
	if !ok {
		return "", ErrNotRunning
	}

	reply := make(chan chatResult, 1)
	select {
	case mailbox <- chatCommand{ctx: ctx, text: message, opts: opts, reply: reply}:
	case <-done:
		return "", ErrNotRunning
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case res := <-reply:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// handleChat runs on the mailbox loop.
func (a *Actor) handleChat(ctx context.Context, message string, opts ChatOptions) (string, error) {
	if a.model == nil {
		return "", fmt.Errorf("agent %s: no model configured", a.def.ID)
	}

	messages := make([]model.Message, 0, opts.MaxMemoryContext+2)
	if a.def.Goal != "" {
		messages = append(messages, model.Message{Role: "system", Content: a.def.Goal})
	}

	useMemory := opts.UseMemory && a.memory != nil
	if useMemory {
		entries, err := a.memory.Recent(ctx, opts.MaxMemoryContext)
		if err != nil {
			return "", fmt.Errorf("agent %s: load memory context: %w", a.def.ID, err)
		}
		// Recent is newest first; the conversation wants oldest first.
		for i := len(entries) - 1; i >= 0; i-- {
			role := entries[i].Kind
			if role != "assistant" && role != "system" {
				role = "user"
			}
			messages = append(messages, model.Message{Role: role, Content: entries[i].Content})
		}
	}
	messages = append(messages, model.Message{Role: "user", Content: message})

	resp, err := a.model.Call(ctx, model.Request{Messages: messages, Tools: a.tools})
	if err != nil {
		return "", err
	}
	text, err := resp.NormalizedText()
	if err != nil {
		return "", err
	}

	if useMemory {
		// Two ordered writes, user then assistant. A failed write loses
		// history, not the response.
		if err := a.memory.Add(ctx, message, "user", nil); err != nil {
			a.logger.Error("persisting user message failed", "error", err)
		} else if err := a.memory.Add(ctx, text, "assistant", nil); err != nil {
			a.logger.Error("persisting assistant response failed", "error", err)
		}
	}
	return text, nil
}

// Optional handler facets picked up when advertising the behavior set.
type describedHandler interface{ Description() string }

type schemaHandler interface{ Schema() map[string]any }

// toolList renders the definition's behavior set as the tool declarations
// sent with every model call: prisms and beams by name, description and
// input schema, lenses as read-only data sources.
func (d Definition) toolList() []model.ToolDefinition {
	tools := make([]model.ToolDefinition, 0, len(d.Prisms)+len(d.Beams)+len(d.Lenses))
	for _, h := range d.Prisms {
		tools = append(tools, toolFromHandler(h))
	}
	for _, h := range d.Beams {
		tools = append(tools, toolFromHandler(h))
	}
	for _, l := range d.Lenses {
		tool := model.ToolDefinition{Name: l.Name, Description: l.Description}
		if tool.Description == "" {
			tool.Description = fmt.Sprintf("Read-only data source (%s)", l.URL)
		}
		tools = append(tools, tool)
	}
	if len(tools) == 0 {
		return nil
	}
	return tools
}

func toolFromHandler(h core.Handler) model.ToolDefinition {
	tool := model.ToolDefinition{Name: h.Name()}
	if d, ok := h.(describedHandler); ok {
		tool.Description = d.Description()
	}
	if s, ok := h.(schemaHandler); ok {
		tool.Parameters = s.Schema()
	}
	return tool
}
