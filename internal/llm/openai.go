package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nuvu/outdial/internal/metrics"
)

// maxToolRounds bounds how many consecutive tool rounds one turn may run
// before the turn is failed. Guards against a model that loops on tools.
const maxToolRounds = 8

// OpenAIChatClient streams from the /v1/chat/completions endpoint with
// function calling and a strict JSON schema response format.
type OpenAIChatClient struct {
	apiKey      string
	url         string
	model       string
	maxTokens   int
	temperature float64
	schema      json.RawMessage
	client      *http.Client
}

// NewOpenAIChatClient creates a chat client against an OpenAI-compatible API.
// A nil schema disables the structured response format.
func NewOpenAIChatClient(apiKey, url, model string, maxTokens int, temperature float64, schema json.RawMessage, client *http.Client) *OpenAIChatClient {
	return &OpenAIChatClient{
		apiKey:      apiKey,
		url:         url,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		schema:      schema,
		client:      client,
	}
}

// Chat streams one assistant turn. Tool rounds are resolved inline: when the
// model requests tool calls the handlers run, their results are appended as
// tool messages, and the model is queried again until it produces content.
func (c *OpenAIChatClient) Chat(ctx context.Context, history []Message, tools []Tool, onToken TokenCallback) (*Result, []Message, error) {
	start := time.Now()
	var appended []Message
	var ttft time.Time

	for round := 0; round < maxToolRounds; round++ {
		sr, err := c.streamOnce(ctx, append(history, appended...), tools, onToken, &ttft)
		if err != nil {
			return nil, appended, err
		}

		if len(sr.toolCalls) == 0 {
			appended = append(appended, Message{Role: "assistant", Content: sr.content})
			latency := time.Since(start)
			metrics.StageDuration.WithLabelValues("llm").Observe(latency.Seconds())

			ttftMs := float64(0)
			if !ttft.IsZero() {
				ttftMs = float64(ttft.Sub(start).Milliseconds())
			}
			return &Result{
				Text:               sr.content,
				LatencyMs:          float64(latency.Milliseconds()),
				TimeToFirstTokenMs: ttftMs,
			}, appended, nil
		}

		appended = append(appended, Message{Role: "assistant", Content: sr.content, ToolCalls: sr.toolCalls})
		for _, tc := range sr.toolCalls {
			appended = append(appended, c.runTool(ctx, tools, tc))
		}
	}

	metrics.Errors.WithLabelValues("llm", "tool_rounds").Inc()
	return nil, appended, fmt.Errorf("no final response after %d tool rounds", maxToolRounds)
}

func (c *OpenAIChatClient) runTool(ctx context.Context, tools []Tool, tc ToolCall) Message {
	for _, t := range tools {
		if t.Name != tc.Function.Name {
			continue
		}
		result, err := t.Handler(ctx, json.RawMessage(tc.Function.Arguments))
		if err != nil {
			metrics.Errors.WithLabelValues("llm", "tool").Inc()
			result = fmt.Sprintf(`{"error": %q}`, err.Error())
		}
		return Message{Role: "tool", ToolCallID: tc.ID, Content: result}
	}
	metrics.Errors.WithLabelValues("llm", "tool_unknown").Inc()
	return Message{Role: "tool", ToolCallID: tc.ID, Content: fmt.Sprintf(`{"error": "unknown tool %s"}`, tc.Function.Name)}
}

type chatStreamResult struct {
	content   string
	toolCalls []ToolCall
}

func (c *OpenAIChatClient) streamOnce(ctx context.Context, messages []Message, tools []Tool, onToken TokenCallback, ttft *time.Time) (*chatStreamResult, error) {
	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"stream":      true,
	}
	if len(tools) > 0 {
		specs := make([]map[string]any, 0, len(tools))
		for _, t := range tools {
			specs = append(specs, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.Parameters,
				},
			})
		}
		payload["tools"] = specs
	}
	if c.schema != nil {
		payload["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "assistant_reply",
				"strict": true,
				"schema": c.schema,
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "http").Inc()
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("llm", "status").Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chat status %d: %s", resp.StatusCode, errBody)
	}

	return consumeChatStream(resp.Body, onToken, ttft), nil
}

// consumeChatStream reads the SSE body, forwarding content tokens and
// accumulating tool-call fragments by index until the stream ends.
func consumeChatStream(body io.Reader, onToken TokenCallback, ttft *time.Time) *chatStreamResult {
	sr := &chatStreamResult{}
	calls := map[int]*ToolCall{}
	maxIndex := -1
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content   string `json:"content"`
					ToolCalls []struct {
						Index    int    `json:"index"`
						ID       string `json:"id"`
						Type     string `json:"type"`
						Function struct {
							Name      string `json:"name"`
							Arguments string `json:"arguments"`
						} `json:"function"`
					} `json:"tool_calls"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if json.Unmarshal([]byte(data), &chunk) != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			if ttft.IsZero() {
				*ttft = time.Now()
			}
			if onToken != nil {
				onToken(delta.Content)
			}
			sr.content += delta.Content
		}

		for _, tc := range delta.ToolCalls {
			call, ok := calls[tc.Index]
			if !ok {
				call = &ToolCall{Type: "function"}
				calls[tc.Index] = call
				if tc.Index > maxIndex {
					maxIndex = tc.Index
				}
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Type != "" {
				call.Type = tc.Type
			}
			if tc.Function.Name != "" {
				call.Function.Name += tc.Function.Name
			}
			call.Function.Arguments += tc.Function.Arguments
		}
	}

	for i := 0; i <= maxIndex; i++ {
		if call, ok := calls[i]; ok {
			sr.toolCalls = append(sr.toolCalls, *call)
		}
	}
	return sr
}
