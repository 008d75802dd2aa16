package httpx

import (
	"net/http"
	"time"
)

// NewPooledClient creates an http.Client with a bounded connection pool and
// tuned transport. maxConns caps total connections, maxPerHost caps each
// remote host, timeout bounds the entire request including body read.
func NewPooledClient(maxConns, maxPerHost int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxConnsPerHost:       maxPerHost,
			MaxIdleConns:          maxConns,
			MaxIdleConnsPerHost:   maxPerHost,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}
