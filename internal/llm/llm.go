// Package llm streams structured chat completions with tool calling.
package llm

import (
	"context"
	"encoding/json"
)

// TokenCallback is called for each streamed content token.
type TokenCallback func(token string)

// Result holds the final model response with timing.
type Result struct {
	Text               string  `json:"text"`
	LatencyMs          float64 `json:"latency_ms"`
	TimeToFirstTokenMs float64 `json:"ttft_ms"`
}

// Message is one chat history entry in OpenAI wire shape.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-requested function invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a callable function exposed to the model. Handler runs in the
// calling goroutine; its return value is fed back as the tool message.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Handler     func(ctx context.Context, args json.RawMessage) (string, error)
}

// ChatClient streams one assistant turn, running tool rounds as needed.
// It returns the final result plus every message the turn appended to the
// history (assistant tool-call messages, tool results, the final assistant
// message) so the caller can carry the full exchange forward.
type ChatClient interface {
	Chat(ctx context.Context, history []Message, tools []Tool, onToken TokenCallback) (*Result, []Message, error)
}

// ChatRouter dispatches to the correct chat backend based on engine name.
type ChatRouter struct {
	*Router[ChatClient]
}

// NewChatRouter creates a router with registered chat backends and a
// fallback default.
func NewChatRouter(backends map[string]ChatClient, fallback string) *ChatRouter {
	return &ChatRouter{Router: NewRouter(backends, fallback)}
}

// Chat routes to the backend for engine and streams one assistant turn.
func (r *ChatRouter) Chat(ctx context.Context, engine string, history []Message, tools []Tool, onToken TokenCallback) (*Result, []Message, error) {
	backend, err := r.Route(engine)
	if err != nil {
		return nil, nil, err
	}
	return backend.Chat(ctx, history, tools, onToken)
}
