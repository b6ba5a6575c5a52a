package worker

import (
	"context"
	"log/slog"
	"time"

	"trustid/internal/outbox"
	"trustid/internal/outbox/metrics"
	"trustid/internal/platform/kafka/producer"
)

// Publisher delivers a batch and reports one error slot per message.
// *producer.Producer satisfies it.
type Publisher interface {
	ProduceBatch(ctx context.Context, msgs []*producer.Message) []error
}

// Worker polls the outbox and publishes pending entries to Kafka.
type Worker struct {
	store        outbox.Store
	publisher    Publisher
	topic        string
	batchSize    int
	pollInterval time.Duration
	drainTimeout time.Duration
	retention    time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type Option func(*Worker)

func WithTopic(topic string) Option {
	return func(w *Worker) { w.topic = topic }
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithRetention enables Prune. Processed entries older than d are deleted.
func WithRetention(d time.Duration) Option {
	return func(w *Worker) { w.retention = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func New(store outbox.Store, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		store:        store,
		publisher:    publisher,
		topic:        "trustid.consent-events",
		batchSize:    100,
		pollInterval: time.Second,
		drainTimeout: 10 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled, then drains what is left with a short
// deadline of its own. It always returns nil so it can sit in an errgroup.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "outbox worker started", "topic", w.topic, "interval", w.pollInterval)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll publishes one batch and reports how many entries were published.
func (w *Worker) Poll(ctx context.Context) int {
	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to fetch outbox entries", "error", err)
		if w.metrics != nil {
			w.metrics.IncPublishFailures()
		}
		return 0
	}
	if len(entries) == 0 {
		return 0
	}
	if w.metrics != nil {
		w.metrics.ObserveBatchSize(len(entries))
	}

	msgs := make([]*producer.Message, len(entries))
	for i, entry := range entries {
		msgs[i] = w.message(entry)
	}
	start := time.Now()
	errs := w.publisher.ProduceBatch(ctx, msgs)
	if w.metrics != nil {
		w.metrics.ObservePublishDuration(time.Since(start).Seconds())
	}

	// Once an entry of a consent fails, later entries of the same consent
	// stay pending so the next poll republishes them in order.
	blocked := make(map[string]bool)
	published := 0
	for i, entry := range entries {
		if blocked[entry.AggregateID] {
			continue
		}
		if errs[i] != nil {
			blocked[entry.AggregateID] = true
			w.logger.ErrorContext(ctx, "failed to publish outbox entry",
				"id", entry.ID,
				"event_type", entry.EventType,
				"error", errs[i],
			)
			if w.metrics != nil {
				w.metrics.IncPublishFailures()
			}
			continue
		}
		if err := w.store.MarkProcessed(ctx, entry.ID, time.Now()); err != nil {
			// Published but not marked: consumers dedupe on the event_id header.
			blocked[entry.AggregateID] = true
			w.logger.ErrorContext(ctx, "failed to mark outbox entry processed", "id", entry.ID, "error", err)
			continue
		}
		published++
		if w.metrics != nil {
			w.metrics.IncPublished()
		}
	}
	return published
}

func (w *Worker) message(entry *outbox.Entry) *producer.Message {
	return &producer.Message{
		Topic: w.topic,
		Key:   []byte(entry.AggregateID),
		Value: entry.Payload,
		Headers: map[string]string{
			"event_id":       entry.ID.String(),
			"aggregate_type": entry.AggregateType,
			"event_type":     entry.EventType,
			"created_at":     entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// Prune deletes processed entries older than the retention window. It is a
// no-op without WithRetention.
func (w *Worker) Prune(ctx context.Context) (int64, error) {
	if w.retention <= 0 {
		return 0, nil
	}
	n, err := w.store.DeleteProcessedBefore(ctx, time.Now().Add(-w.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "pruned outbox entries", "count", n)
	}
	return n, nil
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()

	w.logger.Info("draining outbox worker")
	for ctx.Err() == nil {
		if w.Poll(ctx) == 0 {
			return
		}
	}
}

// UpdateMetrics refreshes the pending depth gauge.
func (w *Worker) UpdateMetrics(ctx context.Context) error {
	if w.metrics == nil {
		return nil
	}
	count, err := w.store.CountPending(ctx)
	if err != nil {
		return err
	}
	w.metrics.SetPendingDepth(count)
	return nil
}
