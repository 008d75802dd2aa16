package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nuvu/outdial/internal/ws"
)

type deps struct {
	cfg       config
	wsHandler *ws.Handler
}

func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/call", d.wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"service":   "outbound-sales-agent",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
}
