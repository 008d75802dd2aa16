// Package call orchestrates one outbound conversation: history, tool
// execution, structured reply streaming and trace recording.
package call

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nuvu/outdial/internal/backend"
	"github.com/nuvu/outdial/internal/llm"
	"github.com/nuvu/outdial/internal/metrics"
	"github.com/nuvu/outdial/internal/prompts"
	"github.com/nuvu/outdial/internal/reply"
	"github.com/nuvu/outdial/internal/salestools"
	"github.com/nuvu/outdial/internal/session"
)

// Notifier tells the backend a conversation ended.
type Notifier interface {
	NotifySessionEnd(ctx context.Context, end backend.SessionEnd) error
}

// Config wires one call's collaborators.
type Config struct {
	LLM         *llm.ChatRouter
	Engine      string
	Traces      session.Submitter
	Backend     Notifier
	Info        *session.Info
	ConsoleMode bool
	AgentID     string
}

// Call is the per-conversation state machine. It is driven by one goroutine;
// none of its methods are safe for concurrent use.
type Call struct {
	cfg      Config
	recorder *session.Recorder
	tools    []llm.Tool
	history  []llm.Message
	ended    bool
}

// New builds a call with its system prompt, tool set and recorder.
func New(cfg Config) *Call {
	c := &Call{
		cfg:      cfg,
		recorder: session.NewRecorder(cfg.Info, cfg.Traces),
	}
	c.tools = c.recordedTools(salestools.Registry(cfg.Info))

	c.history = append(c.history, llm.Message{Role: "system", Content: prompts.DefaultSystem})
	if cc := prompts.CustomerContext(cfg.Info); cc != "" {
		c.history = append(c.history, llm.Message{Role: "system", Content: cc})
	}
	return c
}

// HandleUserTurn runs one conversation turn. The caller's utterance is
// recorded, the model streams a structured reply whose response text is
// forwarded to speak as it resolves, and the finished turn is recorded. On
// model failure the fallback reply is spoken and recorded instead, so the
// caller always hears something and the call stays up.
func (c *Call) HandleUserTurn(ctx context.Context, utterance string, speak func(text string)) error {
	c.recorder.OnTurn(session.RoleUser, utterance)
	c.history = append(c.history, llm.Message{Role: "user", Content: utterance})

	var dec reply.Decoder
	result, appended, err := c.cfg.LLM.Chat(ctx, c.cfg.Engine, c.history, c.tools, func(token string) {
		if delta := dec.Feed(token); delta != "" {
			speak(delta)
		}
	})
	c.history = append(c.history, appended...)

	if err != nil {
		metrics.Errors.WithLabelValues("call", "llm").Inc()
		slog.Error("assistant turn failed",
			"conversation_id", c.cfg.Info.ConversationID, "error", err)
		if dec.Response() == "" {
			fb := reply.Fallback()
			speak(fb.Response)
			raw, _ := json.Marshal(fb)
			c.history = append(c.history, llm.Message{Role: "assistant", Content: string(raw)})
			c.recorder.OnTurn(session.RoleAssistant, string(raw))
		}
		return fmt.Errorf("assistant turn: %w", err)
	}

	metrics.TurnsTotal.Inc()
	c.recorder.OnTurn(session.RoleAssistant, result.Text)
	return nil
}

// End notifies the backend once that the conversation is over. The call is
// skipped without consent and in console mode, matching the trace path.
func (c *Call) End(ctx context.Context) {
	if c.ended {
		return
	}
	c.ended = true

	if !c.cfg.Info.ConsentToRecord || c.cfg.ConsoleMode || c.cfg.Backend == nil {
		return
	}
	end := backend.SessionEnd{
		ConversationID: c.cfg.Info.ConversationID,
		TenantID:       c.cfg.Info.TenantID,
		UserID:         c.cfg.Info.UserID,
		DeviceID:       c.cfg.Info.DeviceID,
		AgentID:        c.cfg.AgentID,
	}
	if err := c.cfg.Backend.NotifySessionEnd(ctx, end); err != nil {
		metrics.Errors.WithLabelValues("call", "session_end").Inc()
		slog.Error("failed to notify session end",
			"conversation_id", c.cfg.Info.ConversationID, "error", err)
	}
}

// recordedTools wraps the tool set so every invocation and result lands in
// the trace pipeline alongside the turns.
func (c *Call) recordedTools(tools []llm.Tool) []llm.Tool {
	wrapped := make([]llm.Tool, len(tools))
	for i := range tools {
		t := tools[i]
		wrapped[i] = t
		wrapped[i].Handler = func(ctx context.Context, args json.RawMessage) (string, error) {
			c.recorder.OnToolCall(t.Name, string(args))
			result, err := t.Handler(ctx, args)
			if err != nil {
				c.recorder.OnToolResult(t.Name, fmt.Sprintf(`{"error": %q}`, err.Error()))
				return result, err
			}
			c.recorder.OnToolResult(t.Name, result)
			return result, nil
		}
	}
	return wrapped
}
