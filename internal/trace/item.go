package trace

import (
	"sync"
	"time"
)

// MessageType classifies a trace item for the backend API.
type MessageType string

const (
	MessageUser                  MessageType = "user"
	MessageAgent                 MessageType = "agent"
	MessageReasoningToolCall     MessageType = "reasoning:tool_call"
	MessageReasoningUserResponse MessageType = "reasoning:user_response"
	MessageTool                  MessageType = "tool"
)

// IsUtterance reports whether the type carries spoken text subject to redaction.
func (t MessageType) IsUtterance() bool {
	return t == MessageUser || t == MessageAgent
}

// Item is one recorded conversation fact destined for the backend.
// An Item is never mutated after construction except for Message["text"],
// rewritten at most once by the redaction step inside a consumer.
type Item struct {
	OccurredAt     string         `json:"occurred_at"`
	ConversationID string         `json:"conversation_id"`
	MessageType    MessageType    `json:"message_type"`
	Message        map[string]any `json:"message"`
	ShouldRedact   bool           `json:"should_redact,omitempty"`
	IsTest         bool           `json:"is_test,omitempty"`
	TraceID        string         `json:"trace_id,omitempty"`
}

var (
	tzOnce sync.Once
	tz     *time.Location
)

// Timestamp returns the current time in the backend's fixed zone
// (Europe/Berlin) as an ISO-8601 string.
func Timestamp() string {
	tzOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Berlin")
		if err != nil {
			loc = time.UTC
		}
		tz = loc
	})
	return time.Now().In(tz).Format(time.RFC3339Nano)
}
