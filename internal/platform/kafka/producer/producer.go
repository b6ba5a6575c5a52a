// Package producer publishes records to Kafka with acknowledged, idempotent
// delivery through franz-go.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

var ErrClosed = errors.New("producer is closed")

// Message is one record to publish. Records sharing a Key land on the same
// partition and keep their relative order.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

func (m *Message) record() *kgo.Record {
	headers := make([]kgo.RecordHeader, 0, len(m.Headers))
	for k, v := range m.Headers {
		headers = append(headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return &kgo.Record{Topic: m.Topic, Key: m.Key, Value: m.Value, Headers: headers}
}

type Config struct {
	Brokers         []string
	ClientID        string
	Retries         int
	Linger          time.Duration
	DeliveryTimeout time.Duration
	FlushTimeout    time.Duration
}

// DefaultConfig takes a comma separated broker list as found in KAFKA_BROKERS.
func DefaultConfig(brokers string) Config {
	var seeds []string
	for b := range strings.SplitSeq(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			seeds = append(seeds, b)
		}
	}
	return Config{
		Brokers:         seeds,
		ClientID:        "trustid",
		Retries:         3,
		Linger:          5 * time.Millisecond,
		DeliveryTimeout: 30 * time.Second,
		FlushTimeout:    30 * time.Second,
	}
}

type Producer struct {
	client       *kgo.Client
	flushTimeout time.Duration
	logger       *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func New(cfg Config, logger *slog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordRetries(cfg.Retries),
		kgo.ProducerLinger(cfg.Linger),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	if cfg.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, flushTimeout: cfg.FlushTimeout, logger: logger}, nil
}

// Produce publishes msg and blocks until the broker acknowledges it.
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	return p.ProduceBatch(ctx, []*Message{msg})[0]
}

// ProduceBatch publishes msgs in one round trip per partition and returns one
// error slot per message, nil where the broker acknowledged it.
func (p *Producer) ProduceBatch(ctx context.Context, msgs []*Message) []error {
	errs := make([]error, len(msgs))
	if len(msgs) == 0 {
		return errs
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		for i := range errs {
			errs[i] = ErrClosed
		}
		return errs
	}

	records := make([]*kgo.Record, len(msgs))
	for i, msg := range msgs {
		records[i] = msg.record()
	}
	// ProduceSync returns results in the order records were given.
	for i, res := range p.client.ProduceSync(ctx, records...) {
		if res.Err != nil {
			errs[i] = fmt.Errorf("produce to %s: %w", msgs[i].Topic, res.Err)
		}
	}
	return errs
}

func (p *Producer) Health(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	return p.client.Ping(ctx)
}

// Client exposes the underlying client for topic administration.
func (p *Producer) Client() *kgo.Client {
	return p.client
}

func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	ctx := context.Background()
	if p.flushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.flushTimeout)
		defer cancel()
	}
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka producer closed with unflushed records", "error", err)
	}
	p.client.Close()
	return nil
}
