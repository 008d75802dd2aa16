// Package redact masks personally identifying information in utterance text
// before it leaves the process.
package redact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/nuvu/outdial/internal/prompts"
)

// Passthrough returns text unchanged. Used when redaction is disabled so the
// delivery path stays identical either way.
type Passthrough struct{}

func (Passthrough) Redact(_ context.Context, text string) (string, error) {
	return text, nil
}

// LLMRedactor rewrites utterance text through a small chat model, replacing
// names, addresses, phone numbers and similar identifiers with placeholders.
type LLMRedactor struct {
	client openai.Client
	model  string
}

// NewLLMRedactor creates a redactor against the OpenAI API.
func NewLLMRedactor(apiKey, model string) *LLMRedactor {
	return &LLMRedactor{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Redact returns the masked text. Any API failure or an empty completion is
// an error; the caller decides whether to fall back to the original text.
func (r *LLMRedactor) Redact(ctx context.Context, text string) (string, error) {
	stream := r.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompts.Redaction),
			openai.UserMessage("Redact this text: \n\n" + text),
		},
	})

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("redaction stream: %w", err)
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("redaction returned empty text")
	}
	return out, nil
}
