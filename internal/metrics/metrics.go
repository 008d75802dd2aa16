package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outdial_calls_active",
		Help: "Currently active call sessions",
	})

	CallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outdial_calls_total",
		Help: "Total call sessions handled",
	})

	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outdial_conversation_turns_total",
		Help: "User utterances processed across all calls",
	})

	TraceQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trace_queue_depth",
		Help: "Trace items currently buffered in the queue",
	})

	TraceItemsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trace_items_dropped_total",
		Help: "Trace items dropped because the queue was full",
	})

	TraceItemsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trace_items_delivered_total",
		Help: "Trace items delivered to the backend",
	})

	TraceItemsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trace_items_skipped_total",
		Help: "Trace items discarded without delivery in console mode",
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outdial_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outdial_stage_duration_seconds",
		Help:    "Per-stage latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	DecoderConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reply_decoder_conflicts_total",
		Help: "Streamed response revisions dropped for violating suffix growth",
	})

	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outdial_dispatch_total",
		Help: "Outbound call dispatch attempts by outcome",
	}, []string{"outcome"})
)
