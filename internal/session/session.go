// Package session carries per-conversation identity and routes conversation
// events into the trace pipeline.
package session

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Customer is the lead attached to an outbound call.
type Customer struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address     string `json:"address"`
	ProjectInfo string `json:"project_info"`
}

// Info is the mutable per-call session state. It is owned by a single call
// goroutine; tools mutate ConsentToRecord through it.
type Info struct {
	ConversationID  string
	TenantID        string
	UserID          string
	DeviceID        string
	Country         string
	AppVersion      string
	Customer        *Customer
	ConsentToRecord bool
}
