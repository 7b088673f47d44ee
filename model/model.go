// Package model defines the normalized LLM request/response contract the
// agent runtime consumes, plus the error taxonomy for provider failures.
// Provider adapters live in subpackages (openai, anthropic); resilience
// decorators in middleware.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Message is one role-tagged conversation turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a minimal JSON-Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall is a function invocation requested by the model, unified across
// vendors so downstream logic needs no per-provider branching.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// TokenUsage captures token accounting for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is the normalized model input.
type Request struct {
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// Response is the normalized model output: free text, structured content, or
// a set of tool invocations.
type Response struct {
	Text         string         `json:"text,omitempty"`
	Structured   map[string]any `json:"structured,omitempty"`
	ToolCalls    []ToolCall     `json:"tool_calls,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Usage        *TokenUsage    `json:"usage,omitempty"`
}

// NormalizedText renders the response as text: Text when present, otherwise
// the structured content as JSON. An empty response with no tool calls is an
// UnexpectedResponseError carrying the raw value.
func (r *Response) NormalizedText() (string, error) {
	switch {
	case r.Text != "":
		return r.Text, nil
	case r.Structured != nil:
		raw, err := json.Marshal(r.Structured)
		if err != nil {
			return "", fmt.Errorf("marshal structured response: %w", err)
		}
		return string(raw), nil
	case len(r.ToolCalls) > 0:
		raw, err := json.Marshal(r.ToolCalls)
		if err != nil {
			return "", fmt.Errorf("marshal tool calls: %w", err)
		}
		return string(raw), nil
	default:
		return "", &UnexpectedResponseError{Raw: r}
	}
}

// Model is the LLM collaborator contract consumed by agent actors.
type Model interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// Config is the durable llm_config of an agent definition: provider, model
// id and sampling parameters. The runtime turns it into a concrete Model via
// the provider adapters.
type Config struct {
	Provider    string  `json:"provider" yaml:"provider"` // "openai", "anthropic"
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int64   `json:"max_tokens" yaml:"max_tokens"`
	APIKey      string  `json:"-" yaml:"-"`
}

// ErrInvalidAPIKey reports an unauthorized provider response.
var ErrInvalidAPIKey = errors.New("invalid api key")

// ProviderError is an error object reported by the provider itself, with the
// message extracted (or defaulted to "Unknown error").
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, msg)
}

// Unwrap exposes the underlying transport error if any.
func (e *ProviderError) Unwrap() error { return e.Err }

// UnexpectedResponseError wraps a provider response that matches no known
// shape, carrying the raw value for diagnosis rather than panicking.
type UnexpectedResponseError struct {
	Raw any
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected model response shape: %T", e.Raw)
}
