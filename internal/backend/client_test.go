package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuvu/outdial/internal/trace"
)

func TestSendTrace(t *testing.T) {
	var gotPath, gotKey string
	var gotItem trace.Item
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotItem))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", srv.Client())
	err := c.SendTrace(context.Background(), trace.Item{
		ConversationID: "c1",
		MessageType:    trace.MessageUser,
		Message:        map[string]any{"text": "hi"},
		ShouldRedact:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/agent/traces", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "c1", gotItem.ConversationID)
	assert.Equal(t, trace.MessageUser, gotItem.MessageType)
	assert.True(t, gotItem.ShouldRedact)
}

func TestSendTraceNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such conversation", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", srv.Client())
	err := c.SendTrace(context.Background(), trace.Item{ConversationID: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "no such conversation")
}

func TestNotifySessionEnd(t *testing.T) {
	var gotPath string
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", srv.Client())
	err := c.NotifySessionEnd(context.Background(), SessionEnd{
		ConversationID: "c1",
		TenantID:       "t1",
		AgentID:        "nuvu-agent-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/agent/conversations/end", gotPath)
	assert.Equal(t, "c1", got["conversation_id"])
	assert.Equal(t, "t1", got["tenant_id"])
	assert.Equal(t, "nuvu-agent-1", got["agent_id"])
	// Empty optional identifiers stay off the wire.
	assert.NotContains(t, got, "user_id")
}

func TestRequestError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "secret", &http.Client{})
	err := c.SendTrace(context.Background(), trace.Item{})
	assert.Error(t, err)
}
