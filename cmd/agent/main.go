package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nuvu/outdial/internal/backend"
	"github.com/nuvu/outdial/internal/httpx"
	"github.com/nuvu/outdial/internal/llm"
	"github.com/nuvu/outdial/internal/prompts"
	"github.com/nuvu/outdial/internal/redact"
	"github.com/nuvu/outdial/internal/trace"
	"github.com/nuvu/outdial/internal/ws"
)

func main() {
	godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	var redactor trace.Redactor = redact.Passthrough{}
	if cfg.redactionEnabled {
		redactor = redact.NewLLMRedactor(cfg.openaiAPIKey, cfg.redactionModel)
	}

	traces := trace.NewSystem(trace.Config{
		QueueCapacity: cfg.traceQueueCapacity,
		Consumers:     cfg.traceConsumers,
		NewDeliverer: func(client *http.Client) trace.Deliverer {
			return backend.NewClient(cfg.backendURL, cfg.agentAPIKey, client)
		},
		Redactor:    redactor,
		ConsoleMode: cfg.consoleMode,
	})
	if err := traces.Init(); err != nil {
		slog.Error("trace system init failed", "error", err)
		os.Exit(1)
	}

	llmHTTP := httpx.NewPooledClient(20, 10, 120*time.Second)
	chatClient := llm.NewOpenAIChatClient(
		cfg.openaiAPIKey, cfg.openaiURL, cfg.llmModel,
		cfg.llmMaxTokens, cfg.llmTemperature, prompts.ReplySchema, llmHTTP,
	)
	llmRouter := llm.NewChatRouter(map[string]llm.ChatClient{
		"openai": chatClient,
	}, "openai")

	backendClient := backend.NewClient(cfg.backendURL, cfg.agentAPIKey, llmHTTP)

	handler := ws.NewHandler(ws.HandlerConfig{
		LLM:           llmRouter,
		LLMEngine:     "openai",
		Traces:        traces,
		Backend:       backendClient,
		AgentID:       cfg.agentID,
		ConsoleMode:   cfg.consoleMode,
		MaxConcurrent: cfg.maxConcurrentCalls,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{cfg: cfg, wsHandler: handler})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		traces.Shutdown()
		srv.Shutdown(ctx)
	}()

	slog.Info("agent starting", "addr", addr,
		"console_mode", cfg.consoleMode, "redaction", cfg.redactionEnabled,
		"max_concurrent", cfg.maxConcurrentCalls)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("agent stopped")
}
