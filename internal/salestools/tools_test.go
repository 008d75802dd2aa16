package salestools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuvu/outdial/internal/llm"
	"github.com/nuvu/outdial/internal/session"
)

func toolByName(t *testing.T, tools []llm.Tool, name string) llm.Tool {
	t.Helper()
	for _, tool := range tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not registered", name)
	return llm.Tool{}
}

func TestRegistryToolSet(t *testing.T) {
	tools := Registry(&session.Info{})
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.NotNil(t, tool.Parameters)
		assert.NotNil(t, tool.Handler)
	}
	assert.ElementsMatch(t, []string{
		"save_consent_to_record",
		"confirm_lead_details",
		"generate_appointment_slots",
		"book_appointment",
		"raise_callback_request",
	}, names)
}

func TestSaveConsentFlipsSessionGate(t *testing.T) {
	info := &session.Info{}
	tool := toolByName(t, Registry(info), "save_consent_to_record")

	out, err := tool.Handler(context.Background(),
		json.RawMessage(`{"consent_to_record":true,"reasoning_for_tool_call":"customer agreed"}`))
	require.NoError(t, err)
	assert.True(t, info.ConsentToRecord)
	assert.JSONEq(t, `{"status":"success"}`, out)

	_, err = tool.Handler(context.Background(),
		json.RawMessage(`{"consent_to_record":false,"reasoning_for_tool_call":"customer declined"}`))
	require.NoError(t, err)
	assert.False(t, info.ConsentToRecord)
}

func TestConfirmLeadDetailsUsesCustomerInfo(t *testing.T) {
	info := &session.Info{Customer: &session.Customer{
		Address:     "42 Elm Ave, Portland, OR 97201",
		ProjectInfo: "Kitchen tile",
	}}
	tool := toolByName(t, Registry(info), "confirm_lead_details")

	out, err := tool.Handler(context.Background(), json.RawMessage(`{"reasoning_for_tool_call":"verify"}`))
	require.NoError(t, err)

	var resp struct {
		Status      string         `json:"status"`
		LeadDetails map[string]any `json:"lead_details"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "42 Elm Ave, Portland, OR 97201", resp.LeadDetails["address"])
	assert.Equal(t, "Kitchen tile", resp.LeadDetails["project_type"])
}

func TestAppointmentSlotsSkipWeekends(t *testing.T) {
	// Friday: the next business day is Monday.
	friday := time.Date(2026, time.August, 21, 9, 0, 0, 0, time.UTC)
	slots := appointmentSlots(friday, 3)

	require.Len(t, slots, 3)
	assert.Equal(t, "Monday", slots[0]["day"])
	assert.Equal(t, "10:00 AM", slots[0]["time"])
	assert.Equal(t, "Monday", slots[1]["day"])
	assert.Equal(t, "2:00 PM", slots[1]["time"])
	assert.Equal(t, "Tuesday", slots[2]["day"])
	assert.Equal(t, "slot_3", slots[2]["slot_id"])
}

func TestBookAppointment(t *testing.T) {
	tool := toolByName(t, Registry(&session.Info{}), "book_appointment")

	out, err := tool.Handler(context.Background(), json.RawMessage(`{
		"slot_id":"slot_1","day":"Monday","date":"August 24","time":"10:00 AM",
		"address":"123 Oak Street","reasoning_for_tool_call":"customer confirmed"
	}`))
	require.NoError(t, err)

	var resp struct {
		Status         string            `json:"status"`
		BookingDetails map[string]string `json:"booking_details"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Regexp(t, `^FCI-\d{5}$`, resp.BookingDetails["appointment_id"])
	assert.Equal(t, "Monday", resp.BookingDetails["day"])
	assert.Contains(t, consultantNames, resp.BookingDetails["consultant_name"])
}

func TestRaiseCallbackRequest(t *testing.T) {
	tool := toolByName(t, Registry(&session.Info{}), "raise_callback_request")

	out, err := tool.Handler(context.Background(), json.RawMessage(`{
		"customer_phone":"+12125551234","preferred_time":"afternoon",
		"reason":"no available slots","reasoning_for_tool_call":"customer asked"
	}`))
	require.NoError(t, err)

	var resp struct {
		Status          string            `json:"status"`
		CallbackDetails map[string]string `json:"callback_details"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Regexp(t, `^CB-\d{5}$`, resp.CallbackDetails["callback_id"])
	assert.Equal(t, "+12125551234", resp.CallbackDetails["customer_phone"])
	assert.Equal(t, "scheduled", resp.CallbackDetails["status"])
	assert.Contains(t, managerNames, resp.CallbackDetails["manager_name"])
}

func TestToolArgsValidation(t *testing.T) {
	info := &session.Info{}
	tool := toolByName(t, Registry(info), "save_consent_to_record")
	_, err := tool.Handler(context.Background(), json.RawMessage(`not json`))
	assert.Error(t, err)
}
