package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nuvu/outdial/internal/trace"
)

// Client talks to the conversation backend API. Every call is a single JSON
// POST authenticated with an API key header; non-2xx responses are errors
// and are never retried here.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a backend client over the given http.Client.
func NewClient(baseURL, apiKey string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, client: client}
}

// SendTrace records one trace item. Fire once, no retry.
func (c *Client) SendTrace(ctx context.Context, item trace.Item) error {
	return c.post(ctx, "/api/agent/traces", item)
}

// SessionEnd is the once-per-session end notification payload.
type SessionEnd struct {
	ConversationID string `json:"conversation_id"`
	TenantID       string `json:"tenant_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	DeviceID       string `json:"device_id,omitempty"`
	AgentID        string `json:"agent_id"`
}

// NotifySessionEnd tells the backend the conversation is over.
func (c *Client) NotifySessionEnd(ctx context.Context, end SessionEnd) error {
	return c.post(ctx, "/api/agent/conversations/end", end)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend status %d on %s: %s", resp.StatusCode, path, errBody)
	}
	return nil
}
