// Package salestools implements the agent's sales tool set. Lead, slot and
// booking data are generated in-process; the CRM integration behind these
// tools is a separate service.
package salestools

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/nuvu/outdial/internal/llm"
	"github.com/nuvu/outdial/internal/session"
)

var consultantNames = []string{"Sarah Johnson", "Mike Thompson", "Lisa Chen", "David Rodriguez"}

var managerNames = []string{"Jennifer Adams", "Robert Martinez", "Susan Williams", "Michael Brown"}

// Registry returns the tool set for one call, bound to its session info so
// save_consent_to_record can flip the recording gate.
func Registry(info *session.Info) []llm.Tool {
	return []llm.Tool{
		{
			Name:        "save_consent_to_record",
			Description: "Save the user consent to record the conversation.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"consent_to_record": {"type": "boolean", "description": "The user's consent to record the conversation."},
					"reasoning_for_tool_call": {"type": "string", "description": "The agent's reasoning for the tool call."}
				},
				"required": ["consent_to_record", "reasoning_for_tool_call"]
			}`),
			Handler: func(_ context.Context, args json.RawMessage) (string, error) {
				var in struct {
					ConsentToRecord bool `json:"consent_to_record"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("save_consent_to_record args: %w", err)
				}
				info.ConsentToRecord = in.ConsentToRecord
				return marshal(map[string]any{"status": "success"})
			},
		},
		{
			Name:        "confirm_lead_details",
			Description: "Verify address and project type from the web form submission.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"reasoning_for_tool_call": {"type": "string", "description": "The agent's reasoning for the tool call."}
				},
				"required": ["reasoning_for_tool_call"]
			}`),
			Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
				lead := leadDetails(info)
				return marshal(map[string]any{
					"status":       "success",
					"lead_details": lead,
					"message":      fmt.Sprintf("Lead details confirmed: %s for %s", lead["address"], lead["project_type"]),
				})
			},
		},
		{
			Name:        "generate_appointment_slots",
			Description: "Generate available appointment time slots for design consultation.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"address": {"type": "string", "description": "The customer's address for the consultation."},
					"project_type": {"type": "string", "description": "Type of flooring project."},
					"reasoning_for_tool_call": {"type": "string", "description": "The agent's reasoning for the tool call."}
				},
				"required": ["address", "project_type", "reasoning_for_tool_call"]
			}`),
			Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
				slots := appointmentSlots(time.Now(), 3)
				return marshal(map[string]any{
					"status":          "success",
					"available_slots": slots,
					"message":         fmt.Sprintf("Found %d available consultation slots", len(slots)),
				})
			},
		},
		{
			Name:        "book_appointment",
			Description: "Book the selected appointment slot for design consultation.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"slot_id": {"type": "string", "description": "Unique identifier for the selected appointment slot."},
					"day": {"type": "string", "description": "Day of the week for the appointment."},
					"date": {"type": "string", "description": "Date of the appointment."},
					"time": {"type": "string", "description": "Time of the appointment."},
					"address": {"type": "string", "description": "Customer's address for the consultation."},
					"reasoning_for_tool_call": {"type": "string", "description": "The agent's reasoning for the tool call."}
				},
				"required": ["slot_id", "day", "date", "time", "address", "reasoning_for_tool_call"]
			}`),
			Handler: func(_ context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Day     string `json:"day"`
					Date    string `json:"date"`
					Time    string `json:"time"`
					Address string `json:"address"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("book_appointment args: %w", err)
				}
				return marshal(map[string]any{
					"status": "success",
					"booking_details": map[string]any{
						"appointment_id":   fmt.Sprintf("FCI-%05d", 10000+rand.Intn(90000)),
						"day":              in.Day,
						"date":             in.Date,
						"time":             in.Time,
						"address":          in.Address,
						"consultant_name":  consultantNames[rand.Intn(len(consultantNames))],
						"service_type":     "Free In-Home Design Consultation",
						"duration":         "60-90 minutes",
						"confirmation_sms": "Will be sent within 15-20 minutes",
					},
					"message": fmt.Sprintf("Appointment successfully booked for %s, %s at %s", in.Day, in.Date, in.Time),
				})
			},
		},
		{
			Name:        "raise_callback_request",
			Description: "Request a callback from the scheduling manager when no suitable appointment slots are available.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"customer_phone": {"type": "string", "description": "Customer's phone number for callback."},
					"preferred_time": {"type": "string", "description": "Customer's preferred callback time."},
					"reason": {"type": "string", "description": "Reason for callback (e.g., no available slots)."},
					"reasoning_for_tool_call": {"type": "string", "description": "The agent's reasoning for the tool call."}
				},
				"required": ["customer_phone", "preferred_time", "reason", "reasoning_for_tool_call"]
			}`),
			Handler: func(_ context.Context, args json.RawMessage) (string, error) {
				var in struct {
					CustomerPhone string `json:"customer_phone"`
					Reason        string `json:"reason"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("raise_callback_request args: %w", err)
				}
				callbackAt := time.Now().Add(time.Duration(30+rand.Intn(31)) * time.Minute)
				return marshal(map[string]any{
					"status": "success",
					"callback_details": map[string]any{
						"callback_id":             fmt.Sprintf("CB-%05d", 10000+rand.Intn(90000)),
						"customer_phone":          in.CustomerPhone,
						"scheduled_callback_time": callbackAt.Format("03:04 PM"),
						"manager_name":            managerNames[rand.Intn(len(managerNames))],
						"reason":                  in.Reason,
						"status":                  "scheduled",
						"priority":                "high",
					},
					"message": "Callback request scheduled with the local scheduling manager",
				})
			},
		},
	}
}

func leadDetails(info *session.Info) map[string]any {
	lead := map[string]any{
		"address":           "123 Oak Street, Springfield, IL 62701",
		"project_type":      "Living room carpet replacement",
		"submitted_date":    "2024-01-15",
		"phone":             "+1-555-123-4567",
		"email":             "john.smith@email.com",
		"preferred_contact": "phone",
	}
	if info != nil && info.Customer != nil {
		if info.Customer.Address != "" {
			lead["address"] = info.Customer.Address
		}
		if info.Customer.ProjectInfo != "" {
			lead["project_type"] = info.Customer.ProjectInfo
		}
	}
	return lead
}

// appointmentSlots proposes morning and afternoon visits across the next
// business days, starting tomorrow and skipping weekends.
func appointmentSlots(now time.Time, n int) []map[string]string {
	slots := make([]map[string]string, 0, n)
	day := now.AddDate(0, 0, 1)
	for len(slots) < n {
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			for _, at := range []string{"10:00 AM", "2:00 PM"} {
				if len(slots) == n {
					break
				}
				slots = append(slots, map[string]string{
					"day":     day.Weekday().String(),
					"date":    day.Format("January 2"),
					"time":    at,
					"slot_id": fmt.Sprintf("slot_%d", len(slots)+1),
				})
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return slots
}

func marshal(v map[string]any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
