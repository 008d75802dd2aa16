package main

import (
	"github.com/nuvu/outdial/internal/env"
)

type config struct {
	port string

	backendURL  string
	agentAPIKey string
	agentID     string

	openaiAPIKey   string
	openaiURL      string
	llmModel       string
	llmMaxTokens   int
	llmTemperature float64

	traceQueueCapacity int
	traceConsumers     int

	redactionEnabled bool
	redactionModel   string

	maxConcurrentCalls int
	consoleMode        bool
}

func loadConfig() config {
	return config{
		port: env.Str("PORT", "8080"),

		backendURL:  env.Str("BACKEND_URL", "http://localhost:3000"),
		agentAPIKey: env.Str("AGENT_API_KEY", ""),
		agentID:     env.Str("AGENT_ID", "nuvu-agent-1"),

		openaiAPIKey:   env.Str("OPENAI_API_KEY", ""),
		openaiURL:      env.Str("OPENAI_URL", "https://api.openai.com"),
		llmModel:       env.Str("LLM_MODEL", "gpt-4o"),
		llmMaxTokens:   env.Int("LLM_MAX_TOKENS", 1024),
		llmTemperature: env.Float("LLM_TEMPERATURE", 0.7),

		traceQueueCapacity: env.Int("TRACE_QUEUE_CAPACITY", 100),
		traceConsumers:     env.Int("TRACE_CONSUMERS", 5),

		redactionEnabled: env.Bool("REDACTION_ENABLED", false),
		redactionModel:   env.Str("REDACTION_MODEL", "gpt-4.1-mini"),

		maxConcurrentCalls: env.Int("MAX_CONCURRENT_CALLS", 100),
		consoleMode:        env.ConsoleMode(),
	}
}
