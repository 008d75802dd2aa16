// Package ws bridges the voice platform to call sessions over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nuvu/outdial/internal/call"
	"github.com/nuvu/outdial/internal/llm"
	"github.com/nuvu/outdial/internal/metrics"
	"github.com/nuvu/outdial/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared backend clients for all call sessions.
type HandlerConfig struct {
	LLM           *llm.ChatRouter
	LLMEngine     string
	Traces        session.Submitter
	Backend       call.Notifier
	AgentID       string
	ConsoleMode   bool
	MaxConcurrent int
}

// Handler manages WebSocket call sessions with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a WebSocket handler with shared backend clients and concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 100
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, maxConc),
	}
}

// callMetadata is the first text frame sent by the voice platform.
type callMetadata struct {
	ConversationID string            `json:"conversation_id"`
	PhoneNumber    string            `json:"phone_number"`
	LeadID         string            `json:"lead_id"`
	CallType       string            `json:"call_type"`
	TenantID       string            `json:"tenant_id"`
	UserID         string            `json:"user_id"`
	DeviceID       string            `json:"device_id"`
	CustomerInfo   *session.Customer `json:"customer_info"`
}

// inboundFrame is any subsequent text frame from the platform.
type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Event is an outbound frame to the platform.
type Event struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// EventCallback sends one event to the platform.
type EventCallback func(ev Event)

// ServeHTTP upgrades the connection and runs the call session.
// Returns 503 if at max concurrent call capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.CallsActive.Inc()
	metrics.CallsTotal.Inc()
	defer metrics.CallsActive.Dec()

	h.runSession(conn)
}

func (h *Handler) runSession(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, err := readMetadata(conn)
	if err != nil {
		slog.Error("read call metadata", "error", err)
		return
	}

	conversationID := meta.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	appVersion := "outbound_sales"
	if meta.CallType != "" {
		appVersion = meta.CallType
	}

	info := &session.Info{
		ConversationID: conversationID,
		TenantID:       meta.TenantID,
		UserID:         meta.UserID,
		DeviceID:       meta.DeviceID,
		AppVersion:     appVersion,
		Customer:       meta.CustomerInfo,
	}

	slog.Info("call started",
		"conversation_id", conversationID, "lead_id", meta.LeadID, "call_type", appVersion)

	c := call.New(call.Config{
		LLM:         h.cfg.LLM,
		Engine:      h.cfg.LLMEngine,
		Traces:      h.cfg.Traces,
		Backend:     h.cfg.Backend,
		Info:        info,
		ConsoleMode: h.cfg.ConsoleMode,
		AgentID:     h.cfg.AgentID,
	})

	sendEvent := newEventSender(conn)
	processMessages(ctx, conn, c, sendEvent)

	// End notification uses a fresh context so it survives connection close.
	c.End(context.Background())
	slog.Info("call ended", "conversation_id", conversationID)
}

// processMessages reads text frames in a loop. The first frame was already
// consumed as callMetadata by runSession; every user_utterance frame drives
// one conversation turn, streaming speak events back as text resolves.
func processMessages(ctx context.Context, conn *websocket.Conn, c *call.Call, sendEvent EventCallback) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "error", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Error("parse frame", "error", err)
			sendEvent(Event{Type: "error", Text: "malformed frame"})
			continue
		}

		switch frame.Type {
		case "user_utterance":
			if err := c.HandleUserTurn(ctx, frame.Text, func(text string) {
				sendEvent(Event{Type: "speak", Text: text})
			}); err != nil {
				slog.Error("turn failed", "error", err)
			}
		case "hangup":
			sendEvent(Event{Type: "hangup"})
			return
		default:
			slog.Warn("unknown frame type", "type", frame.Type)
		}
	}
}

func newEventSender(conn *websocket.Conn) EventCallback {
	var mu sync.Mutex
	return func(ev Event) {
		mu.Lock()
		defer mu.Unlock()

		jsonBytes, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, jsonBytes); err != nil {
			slog.Error("write event", "error", err)
		}
	}
}

func readMetadata(conn *websocket.Conn) (*callMetadata, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var meta callMetadata
	if err = json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
