package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseBody(chunks ...string) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString("data: ")
		sb.WriteString(c)
		sb.WriteString("\n\n")
	}
	sb.WriteString("data: [DONE]\n\n")
	return sb.String()
}

func contentChunk(text string) string {
	return fmt.Sprintf(`{"choices":[{"delta":{"content":%q}}]}`, text)
}

func TestChatStreamsContent(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, sseBody(contentChunk(`{"resp`), contentChunk(`onse":"hi"}`)))
	}))
	defer srv.Close()

	c := NewOpenAIChatClient("test-key", srv.URL, "gpt-4o", 512, 0.7,
		json.RawMessage(`{"type":"object"}`), srv.Client())

	var tokens []string
	result, appended, err := c.Chat(context.Background(),
		[]Message{{Role: "user", Content: "hello"}}, nil,
		func(token string) { tokens = append(tokens, token) })
	require.NoError(t, err)

	assert.Equal(t, `{"response":"hi"}`, result.Text)
	assert.Equal(t, []string{`{"resp`, `onse":"hi"}`}, tokens)
	require.Len(t, appended, 1)
	assert.Equal(t, "assistant", appended[0].Role)

	// The structured response format rides on every request.
	rf, ok := gotBody["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])
	assert.Equal(t, true, gotBody["stream"])
	assert.Equal(t, "gpt-4o", gotBody["model"])
}

func TestChatRunsToolRound(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var body struct {
			Messages []Message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if requests == 1 {
			// Tool call split across chunks the way real streams arrive.
			fmt.Fprint(w, sseBody(
				`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"confirm_lead","arguments":""}}]}}]}`,
				`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"reasoning"}}]}}]}`,
				`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\":\"check\"}"}}]}}]}`,
			))
			return
		}

		// Second round must carry the tool exchange back to the model.
		last := body.Messages[len(body.Messages)-1]
		assert.Equal(t, "tool", last.Role)
		assert.Equal(t, "call_1", last.ToolCallID)
		assert.Equal(t, `{"status":"ok"}`, last.Content)
		fmt.Fprint(w, sseBody(contentChunk(`{"response":"done"}`)))
	}))
	defer srv.Close()

	var gotArgs string
	tools := []Tool{{
		Name:        "confirm_lead",
		Description: "verify the lead",
		Parameters:  json.RawMessage(`{"type":"object"}`),
		Handler: func(_ context.Context, args json.RawMessage) (string, error) {
			gotArgs = string(args)
			return `{"status":"ok"}`, nil
		},
	}}

	c := NewOpenAIChatClient("k", srv.URL, "gpt-4o", 512, 0.7, nil, srv.Client())
	result, appended, err := c.Chat(context.Background(),
		[]Message{{Role: "user", Content: "verify my details"}}, tools, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	assert.Equal(t, `{"reasoning":"check"}`, gotArgs)
	assert.Equal(t, `{"response":"done"}`, result.Text)

	// assistant tool-call message, tool result, final assistant message.
	require.Len(t, appended, 3)
	assert.Equal(t, "assistant", appended[0].Role)
	require.Len(t, appended[0].ToolCalls, 1)
	assert.Equal(t, "confirm_lead", appended[0].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", appended[1].Role)
	assert.Equal(t, "assistant", appended[2].Role)
}

func TestChatUnknownToolFeedsErrorBack(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			fmt.Fprint(w, sseBody(
				`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_9","type":"function","function":{"name":"no_such_tool","arguments":"{}"}}]}}]}`,
			))
			return
		}
		fmt.Fprint(w, sseBody(contentChunk(`{"response":"recovered"}`)))
	}))
	defer srv.Close()

	c := NewOpenAIChatClient("k", srv.URL, "gpt-4o", 512, 0.7, nil, srv.Client())
	result, appended, err := c.Chat(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, `{"response":"recovered"}`, result.Text)
	require.Len(t, appended, 3)
	assert.Contains(t, appended[1].Content, "unknown tool")
}

func TestChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIChatClient("k", srv.URL, "gpt-4o", 512, 0.7, nil, srv.Client())
	_, _, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestRouterFallback(t *testing.T) {
	c := NewOpenAIChatClient("k", "http://localhost", "m", 1, 0, nil, http.DefaultClient)
	r := NewChatRouter(map[string]ChatClient{"openai": c}, "openai")

	got, err := r.Route("missing-engine")
	require.NoError(t, err)
	assert.Equal(t, ChatClient(c), got)

	empty := NewChatRouter(map[string]ChatClient{}, "openai")
	_, err = empty.Route("anything")
	assert.Error(t, err)
}
