package dial

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nuvu/outdial/internal/session"
)

// Lead identifies who to call and what the agent should know about them.
type Lead struct {
	ID          string
	PhoneNumber string
	Customer    *session.Customer
}

// Dispatch is the result of a successful call dispatch.
type Dispatch struct {
	RoomName string
	LeadID   string
	Phone    string
}

// Client dispatches outbound calls through the platform's Twirp server API:
// create a room, then dispatch the agent into it with the lead attached as
// room metadata. Requests are signed with a short-lived HS256 token.
type Client struct {
	url       string
	apiKey    string
	apiSecret string
	agentName string
	trunkID   string
	client    *http.Client
}

// NewClient creates a dispatch client. agentName selects which registered
// agent worker picks up the room.
func NewClient(url, apiKey, apiSecret, agentName, trunkID string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		url:       strings.TrimSuffix(url, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		agentName: agentName,
		trunkID:   trunkID,
		client:    client,
	}
}

// Dispatch validates the lead's number, creates the call room, and
// dispatches the agent into it.
func (c *Client) Dispatch(ctx context.Context, lead Lead) (*Dispatch, error) {
	phone, ok := ValidatePhoneNumber(lead.PhoneNumber)
	if !ok {
		return nil, fmt.Errorf("invalid phone number %q", lead.PhoneNumber)
	}

	leadID := lead.ID
	if leadID == "" {
		leadID = "manual_" + strings.TrimPrefix(phone, "+")
	}
	roomName := fmt.Sprintf("outbound_call_%s_%s", strings.TrimPrefix(phone, "+"), leadID)

	meta := map[string]any{
		"phone_number": phone,
		"lead_id":      leadID,
		"call_type":    "sales_outbound",
		"agent_name":   "Jack",
	}
	if c.trunkID != "" {
		meta["sip_trunk_id"] = c.trunkID
	}
	if lead.Customer != nil {
		meta["customer_info"] = lead.Customer
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal dispatch metadata: %w", err)
	}

	if err := c.twirp(ctx, "livekit.RoomService/CreateRoom", map[string]any{
		"name": roomName,
	}); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	if err := c.twirp(ctx, "livekit.AgentDispatchService/CreateDispatch", map[string]any{
		"room":       roomName,
		"agent_name": c.agentName,
		"metadata":   string(metaJSON),
	}); err != nil {
		return nil, fmt.Errorf("create dispatch: %w", err)
	}

	return &Dispatch{RoomName: roomName, LeadID: leadID, Phone: phone}, nil
}

func (c *Client) twirp(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	token, err := c.accessToken()
	if err != nil {
		return fmt.Errorf("sign access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/twirp/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s status %d: %s", method, resp.StatusCode, errBody)
	}
	return nil
}

// accessToken mints a short-lived admin token for the server API.
func (c *Client) accessToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": c.apiKey,
		"nbf": now.Unix(),
		"exp": now.Add(10 * time.Minute).Unix(),
		"video": map[string]any{
			"roomCreate": true,
			"roomAdmin":  true,
			"roomList":   true,
			"agent":      true,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.apiSecret))
}
