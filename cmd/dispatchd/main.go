// Command dispatchd is the HTTP dispatch service: CRM automations POST a
// lead and it places the outbound call through the voice platform.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nuvu/outdial/internal/dial"
	"github.com/nuvu/outdial/internal/env"
	"github.com/nuvu/outdial/internal/metrics"
	"github.com/nuvu/outdial/internal/session"
)

const defaultTestAddress = "123 Oak Street, Springfield, IL 62701"

type server struct {
	apiKey      string
	testAddress string
	dispatcher  *dial.Client
}

func main() {
	godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	url := env.Str("LIVEKIT_URL", "")
	apiKey := env.Str("LIVEKIT_API_KEY", "")
	apiSecret := env.Str("LIVEKIT_API_SECRET", "")
	if url == "" || apiKey == "" || apiSecret == "" {
		slog.Error("LIVEKIT_URL, LIVEKIT_API_KEY and LIVEKIT_API_SECRET must be set")
		os.Exit(1)
	}

	s := &server{
		apiKey:      env.Str("API_KEY", ""),
		testAddress: env.Str("TEST_ADDRESS", defaultTestAddress),
		dispatcher: dial.NewClient(
			url, apiKey, apiSecret,
			env.Str("AGENT_NAME", "outbound_call_agent"),
			env.Str("SIP_TRUNK_ID", ""),
			nil,
		),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/dispatch-call", s.handleDispatch)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"service":   "outbound-call-dispatcher",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	addr := ":" + env.Str("PORT", "8081")
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("dispatchd starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("dispatchd stopped")
}

type dispatchRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	ProjectInfo string `json:"project_info"`
}

func (s *server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if s.apiKey == "" || r.Header.Get("X-API-Key") != s.apiKey {
		metrics.DispatchTotal.WithLabelValues("unauthorized").Inc()
		writeError(w, http.StatusUnauthorized, "Invalid or missing API key", "Please provide a valid X-API-Key header")
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.DispatchTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	if msg := validateRequest(req); msg != "" {
		metrics.DispatchTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "Validation error", msg)
		return
	}

	phone, ok := dial.ValidatePhoneNumber(req.PhoneNumber)
	if !ok {
		metrics.DispatchTotal.WithLabelValues("invalid_phone").Inc()
		writeError(w, http.StatusBadRequest, "Invalid phone number",
			fmt.Sprintf("Phone number %s is not a valid US phone number", req.PhoneNumber))
		return
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		address = s.testAddress
	}

	leadID := fmt.Sprintf("%s_%s_%s",
		strings.ToLower(req.FirstName), strings.ToLower(req.LastName),
		time.Now().Format("20060102_150405"))

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	d, err := s.dispatcher.Dispatch(ctx, dial.Lead{
		ID:          leadID,
		PhoneNumber: phone,
		Customer: &session.Customer{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Address:     address,
			ProjectInfo: req.ProjectInfo,
		},
	})
	if err != nil {
		metrics.DispatchTotal.WithLabelValues("failed").Inc()
		slog.Error("dispatch failed", "phone", phone, "lead_id", leadID, "error", err)
		writeError(w, http.StatusInternalServerError, "Dispatch failed",
			fmt.Sprintf("Failed to dispatch call to %s", phone))
		return
	}

	metrics.DispatchTotal.WithLabelValues("success").Inc()
	slog.Info("call dispatched", "phone", d.Phone, "lead_id", d.LeadID, "room", d.RoomName)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"call_id":       d.RoomName,
		"lead_id":       d.LeadID,
		"phone_number":  d.Phone,
		"customer_name": req.FirstName + " " + req.LastName,
		"address":       address,
		"message":       fmt.Sprintf("Call dispatched successfully to %s %s", req.FirstName, req.LastName),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

func validateRequest(req dispatchRequest) string {
	if req.FirstName == "" || req.LastName == "" || req.PhoneNumber == "" {
		return "first_name, last_name and phone_number are required"
	}
	if len(req.FirstName) > 50 || len(req.LastName) > 50 {
		return "Names must be less than 50 characters"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errMsg, detail string) {
	body := map[string]any{"success": false, "error": errMsg}
	if detail != "" {
		body["message"] = detail
	}
	writeJSON(w, status, body)
}
