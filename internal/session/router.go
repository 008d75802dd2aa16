package session

import (
	"log/slog"

	"github.com/nuvu/outdial/internal/reply"
	"github.com/nuvu/outdial/internal/trace"
)

// Submitter accepts trace items for background delivery.
type Submitter interface {
	Submit(item trace.Item)
}

// Recorder turns conversation events into trace items. Every event checks
// the consent gate at submission time, so consent captured mid-call applies
// to everything after the tool flips it and nothing before.
type Recorder struct {
	info   *Info
	traces Submitter
}

// NewRecorder creates a recorder bound to one call's session info.
func NewRecorder(info *Info, traces Submitter) *Recorder {
	return &Recorder{info: info, traces: traces}
}

// OnTurn records one finished conversation turn. An assistant turn is split
// into a reasoning item carrying the structured fields and a content item
// carrying the spoken text; a user turn is recorded as-is. Unparsable
// assistant content falls back to default structured values and generic
// text rather than dropping the turn.
func (r *Recorder) OnTurn(role Role, content string) {
	if !r.info.ConsentToRecord {
		return
	}

	text := content
	if role == RoleAssistant {
		rep, err := reply.Parse(content)
		if err != nil {
			slog.Error("failed to parse assistant reply, recording fallback",
				"conversation_id", r.info.ConversationID, "error", err)
			rep = reply.Fallback()
		}
		text = rep.Response
		r.traces.Submit(trace.Item{
			OccurredAt:     trace.Timestamp(),
			ConversationID: r.info.ConversationID,
			MessageType:    trace.MessageReasoningUserResponse,
			Message: map[string]any{
				"user_frustration_level": string(rep.UserFrustrationLevel),
				"number_of_attempts":     rep.NumberOfAttempts,
			},
		})
	}

	messageType := trace.MessageUser
	if role == RoleAssistant {
		messageType = trace.MessageAgent
	}
	r.traces.Submit(trace.Item{
		OccurredAt:     trace.Timestamp(),
		ConversationID: r.info.ConversationID,
		MessageType:    messageType,
		Message:        map[string]any{"text": text},
		ShouldRedact:   true,
	})
}

// OnToolCall records a tool invocation with its raw arguments.
func (r *Recorder) OnToolCall(name, arguments string) {
	if !r.info.ConsentToRecord {
		return
	}
	r.traces.Submit(trace.Item{
		OccurredAt:     trace.Timestamp(),
		ConversationID: r.info.ConversationID,
		MessageType:    trace.MessageReasoningToolCall,
		Message:        map[string]any{"name": name, "arguments": arguments},
	})
}

// OnToolResult records what a tool returned to the model.
func (r *Recorder) OnToolResult(name, result string) {
	if !r.info.ConsentToRecord {
		return
	}
	r.traces.Submit(trace.Item{
		OccurredAt:     trace.Timestamp(),
		ConversationID: r.info.ConversationID,
		MessageType:    trace.MessageTool,
		Message:        map[string]any{"name": name, "result": result},
	})
}
