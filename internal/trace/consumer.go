package trace

import (
	"context"
	"log/slog"

	"github.com/nuvu/outdial/internal/metrics"
)

// consume is one worker loop. It blocks on the queue, processes items one at
// a time, and survives every per-item failure: nothing raised here may ever
// reach the conversation path.
func (s *System) consume(ctx context.Context, id int, queue *Queue, deliverer Deliverer) {
	defer s.wg.Done()

	for {
		item, ok := queue.Get(ctx)
		if !ok {
			slog.Info("trace consumer cancelled", "consumer", id)
			return
		}
		s.process(ctx, item, deliverer)
	}
}

func (s *System) process(ctx context.Context, item Item, deliverer Deliverer) {
	// Local/dev runs must not pollute the backend. Items marked is_test
	// bypass the suppression so the delivery path itself stays testable.
	if !item.IsTest && s.cfg.ConsoleMode {
		metrics.TraceItemsSkipped.Inc()
		slog.Info("skipping trace in console mode",
			"conversation_id", item.ConversationID, "message_type", item.MessageType)
		return
	}

	if item.ShouldRedact && item.MessageType.IsUtterance() && s.cfg.Redactor != nil {
		if text, ok := item.Message["text"].(string); ok {
			redacted, err := s.cfg.Redactor.Redact(ctx, text)
			if err != nil {
				// Availability outranks redaction completeness: deliver the
				// original text rather than lose the trace.
				metrics.Errors.WithLabelValues("redact", "failed").Inc()
				slog.Error("redaction failed, delivering unredacted text",
					"conversation_id", item.ConversationID, "error", err)
			} else {
				item.Message["text"] = redacted
			}
		}
	}

	if err := deliverer.SendTrace(ctx, item); err != nil {
		if ctx.Err() != nil {
			// Abandoned mid-flight on shutdown; not redelivered.
			return
		}
		metrics.Errors.WithLabelValues("trace_delivery", "send").Inc()
		slog.Error("trace delivery failed",
			"conversation_id", item.ConversationID, "message_type", item.MessageType, "error", err)
		return
	}

	metrics.TraceItemsDelivered.Inc()
}
