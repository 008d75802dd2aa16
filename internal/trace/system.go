package trace

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nuvu/outdial/internal/httpx"
	"github.com/nuvu/outdial/internal/metrics"
)

const (
	// Defaults; tunable through Config, they carry no observed load rationale.
	defaultQueueCapacity = 100
	defaultConsumers     = 5

	// Shared outbound client bounds.
	clientMaxConns   = 10
	clientMaxPerHost = 5
	clientTimeout    = 30 * time.Second

	// Bounded grace for queue bookkeeping to settle during shutdown.
	shutdownGrace = 5 * time.Second
)

// Deliverer ships one trace item to the backend. A non-nil error means the
// item was not recorded; the system never retries.
type Deliverer interface {
	SendTrace(ctx context.Context, item Item) error
}

// Redactor masks personally identifying information in utterance text.
type Redactor interface {
	Redact(ctx context.Context, text string) (string, error)
}

// Config configures the trace system.
type Config struct {
	// QueueCapacity bounds the in-process buffer (default 100).
	QueueCapacity int
	// Consumers is the number of delivery workers (default 5).
	Consumers int
	// NewDeliverer builds the backend deliverer around the shared pooled
	// client the system creates at Init and closes at Shutdown.
	NewDeliverer func(client *http.Client) Deliverer
	// Redactor is applied to utterance items flagged should_redact.
	// Nil skips redaction entirely.
	Redactor Redactor
	// ConsoleMode suppresses delivery of non-test items so local runs
	// never pollute the backend.
	ConsoleMode bool
}

// System owns the trace queue, the consumer pool, and the shared outbound
// client as one process-wide resource with an explicit init/shutdown
// lifecycle. Producers hold a reference and call Submit; they never block
// on queue space and never see an error from the delivery path.
type System struct {
	cfg Config

	mu        sync.Mutex
	queue     *Queue
	client    *http.Client
	deliverer Deliverer
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
}

// NewSystem creates an uninitialized trace system. Call Init before Submit.
func NewSystem(cfg Config) *System {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}
	if cfg.Consumers <= 0 {
		cfg.Consumers = defaultConsumers
	}
	return &System{cfg: cfg}
}

// Init creates the queue and the shared network client and starts the
// consumer workers. It must be called exactly once before any Submit.
func (s *System) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("trace system already initialized")
	}
	if s.cfg.NewDeliverer == nil {
		return errors.New("trace system requires a deliverer")
	}

	s.queue = NewQueue(s.cfg.QueueCapacity)
	s.client = httpx.NewPooledClient(clientMaxConns, clientMaxPerHost, clientTimeout)
	s.deliverer = s.cfg.NewDeliverer(s.client)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for i := 0; i < s.cfg.Consumers; i++ {
		s.wg.Add(1)
		go s.consume(ctx, i, s.queue, s.deliverer)
	}
	s.running = true

	slog.Info("trace system initialized", "consumers", s.cfg.Consumers, "queue_capacity", s.cfg.QueueCapacity)
	return nil
}

// Submit enqueues item for background delivery. It never blocks: before Init
// it is a logged no-op, and on a full queue the item is dropped and counted.
func (s *System) Submit(item Item) {
	s.mu.Lock()
	q := s.queue
	running := s.running
	s.mu.Unlock()

	if !running || q == nil {
		slog.Error("trace system not initialized, dropping trace",
			"conversation_id", item.ConversationID, "message_type", item.MessageType)
		return
	}

	if !q.TryPut(item) {
		metrics.TraceItemsDropped.Inc()
		slog.Error("trace queue full, dropping trace",
			"conversation_id", item.ConversationID, "message_type", item.MessageType)
	}
}

// Shutdown cancels the consumers, waits for them to exit, allows a bounded
// grace period for queue bookkeeping to settle, and closes the shared
// client. In-flight deliveries may be abandoned. Safe to call repeatedly.
func (s *System) Shutdown() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	queue := s.queue
	client := s.client
	cancel := s.cancel
	s.queue = nil
	s.client = nil
	s.deliverer = nil
	s.cancel = nil
	s.running = false
	s.mu.Unlock()

	slog.Info("shutting down trace system")

	cancel()
	s.wg.Wait()

	if !awaitEmpty(queue, shutdownGrace) {
		slog.Warn("timeout waiting for trace queue to empty during shutdown", "remaining", queue.Len())
	}

	client.CloseIdleConnections()
	slog.Info("trace system shutdown complete")
}

func awaitEmpty(q *Queue, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for q.Len() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
	return true
}
