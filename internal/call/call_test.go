package call

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuvu/outdial/internal/backend"
	"github.com/nuvu/outdial/internal/llm"
	"github.com/nuvu/outdial/internal/session"
	"github.com/nuvu/outdial/internal/trace"
)

type scriptedLLM struct {
	chunks []string
	err    error
}

func (s *scriptedLLM) Chat(_ context.Context, _ []llm.Message, _ []llm.Tool, onToken llm.TokenCallback) (*llm.Result, []llm.Message, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	var full strings.Builder
	for _, c := range s.chunks {
		if onToken != nil {
			onToken(c)
		}
		full.WriteString(c)
	}
	msg := llm.Message{Role: "assistant", Content: full.String()}
	return &llm.Result{Text: full.String()}, []llm.Message{msg}, nil
}

type captureSubmitter struct {
	items []trace.Item
}

func (c *captureSubmitter) Submit(item trace.Item) {
	c.items = append(c.items, item)
}

type captureNotifier struct {
	ends []backend.SessionEnd
	err  error
}

func (c *captureNotifier) NotifySessionEnd(_ context.Context, end backend.SessionEnd) error {
	if c.err != nil {
		return c.err
	}
	c.ends = append(c.ends, end)
	return nil
}

func newTestCall(model *scriptedLLM, info *session.Info, notifier *captureNotifier, consoleMode bool) (*Call, *captureSubmitter) {
	sub := &captureSubmitter{}
	router := llm.NewChatRouter(map[string]llm.ChatClient{"fake": model}, "fake")
	c := New(Config{
		LLM:         router,
		Engine:      "fake",
		Traces:      sub,
		Backend:     notifier,
		Info:        info,
		ConsoleMode: consoleMode,
		AgentID:     "nuvu-agent-1",
	})
	return c, sub
}

func TestHandleUserTurnStreamsResponseText(t *testing.T) {
	model := &scriptedLLM{chunks: []string{
		`{"user_frustration_level":"low","number_of_attempts":1,"respon`,
		`se":"Hi the`,
		`re, how can I help?"}`,
	}}
	info := &session.Info{ConversationID: "c1", ConsentToRecord: true}
	c, sub := newTestCall(model, info, &captureNotifier{}, false)

	var spoken strings.Builder
	err := c.HandleUserTurn(context.Background(), "hello", func(text string) {
		spoken.WriteString(text)
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi there, how can I help?", spoken.String())

	// user turn, assistant reasoning, assistant content.
	require.Len(t, sub.items, 3)
	assert.Equal(t, trace.MessageUser, sub.items[0].MessageType)
	assert.Equal(t, "hello", sub.items[0].Message["text"])
	assert.Equal(t, trace.MessageReasoningUserResponse, sub.items[1].MessageType)
	assert.Equal(t, trace.MessageAgent, sub.items[2].MessageType)
	assert.Equal(t, "Hi there, how can I help?", sub.items[2].Message["text"])
}

func TestHandleUserTurnFallbackOnModelFailure(t *testing.T) {
	model := &scriptedLLM{err: errors.New("upstream down")}
	info := &session.Info{ConversationID: "c1", ConsentToRecord: true}
	c, sub := newTestCall(model, info, &captureNotifier{}, false)

	var spoken strings.Builder
	err := c.HandleUserTurn(context.Background(), "hello", func(text string) {
		spoken.WriteString(text)
	})
	require.Error(t, err)

	// The caller still hears something and the fallback turn is recorded.
	assert.Equal(t, "Can you say that again, please?", spoken.String())
	require.Len(t, sub.items, 3)
	assert.Equal(t, "medium", sub.items[1].Message["user_frustration_level"])
	assert.Equal(t, -1, sub.items[1].Message["number_of_attempts"])
	assert.Equal(t, "Can you say that again, please?", sub.items[2].Message["text"])
}

func TestHandleUserTurnKeepsHistory(t *testing.T) {
	model := &scriptedLLM{chunks: []string{`{"user_frustration_level":"low","number_of_attempts":1,"response":"First."}`}}
	info := &session.Info{ConversationID: "c1"}
	c, _ := newTestCall(model, info, &captureNotifier{}, false)

	require.NoError(t, c.HandleUserTurn(context.Background(), "one", func(string) {}))
	require.NoError(t, c.HandleUserTurn(context.Background(), "two", func(string) {}))

	// system prompt, two user turns, two assistant turns.
	roles := make([]string, 0, len(c.history))
	for _, m := range c.history {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user", "assistant"}, roles)
}

func TestEndNotifiesBackendOnce(t *testing.T) {
	notifier := &captureNotifier{}
	info := &session.Info{ConversationID: "c1", TenantID: "t1", ConsentToRecord: true}
	c, _ := newTestCall(&scriptedLLM{}, info, notifier, false)

	c.End(context.Background())
	c.End(context.Background())

	require.Len(t, notifier.ends, 1)
	assert.Equal(t, "c1", notifier.ends[0].ConversationID)
	assert.Equal(t, "t1", notifier.ends[0].TenantID)
	assert.Equal(t, "nuvu-agent-1", notifier.ends[0].AgentID)
}

func TestEndSkippedWithoutConsent(t *testing.T) {
	notifier := &captureNotifier{}
	c, _ := newTestCall(&scriptedLLM{}, &session.Info{ConversationID: "c1"}, notifier, false)
	c.End(context.Background())
	assert.Empty(t, notifier.ends)
}

func TestEndSkippedInConsoleMode(t *testing.T) {
	notifier := &captureNotifier{}
	info := &session.Info{ConversationID: "c1", ConsentToRecord: true}
	c, _ := newTestCall(&scriptedLLM{}, info, notifier, true)
	c.End(context.Background())
	assert.Empty(t, notifier.ends)
}

func TestCustomerContextAddsSecondSystemMessage(t *testing.T) {
	info := &session.Info{
		ConversationID: "c1",
		Customer:       &session.Customer{FirstName: "John", LastName: "Smith", Address: "123 Oak St"},
	}
	c, _ := newTestCall(&scriptedLLM{}, info, &captureNotifier{}, false)

	require.GreaterOrEqual(t, len(c.history), 2)
	assert.Equal(t, "system", c.history[1].Role)
	assert.Contains(t, c.history[1].Content, "John")
	assert.Contains(t, c.history[1].Content, "123 Oak St")
}
