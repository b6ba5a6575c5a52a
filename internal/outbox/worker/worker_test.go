package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustid/internal/outbox"
	"trustid/internal/outbox/store"
	"trustid/internal/platform/kafka/producer"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*producer.Message
	// failKey rejects messages with this key; failOnce only the first one.
	failKey  string
	failOnce bool
}

func (p *recordingPublisher) ProduceBatch(_ context.Context, msgs []*producer.Message) []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := make([]error, len(msgs))
	for i, msg := range msgs {
		if p.failKey != "" && string(msg.Key) == p.failKey {
			errs[i] = errors.New("broker unavailable")
			if p.failOnce {
				p.failKey = ""
			}
			continue
		}
		p.messages = append(p.messages, msg)
	}
	return errs
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

func appendEntry(t *testing.T, s outbox.Store, aggregateID, eventType string) *outbox.Entry {
	t.Helper()
	entry, err := outbox.NewEntry("consent", aggregateID, eventType, map[string]string{"consent_id": aggregateID}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), entry))
	return entry
}

func newWorker(s outbox.Store, p Publisher) *Worker {
	return New(s, p,
		WithTopic("test.topic"),
		WithBatchSize(10),
		WithPollInterval(10*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestPollPublishesAndMarks(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	pub := &recordingPublisher{}
	first := appendEntry(t, s, "c-1", "consent_requested")
	appendEntry(t, s, "c-1", "consent_approved")

	w := newWorker(s, pub)
	assert.Equal(t, 2, w.Poll(ctx))

	require.Len(t, pub.messages, 2)
	msg := pub.messages[0]
	assert.Equal(t, "test.topic", msg.Topic)
	assert.Equal(t, []byte("c-1"), msg.Key)
	assert.Equal(t, first.ID.String(), msg.Headers["event_id"])
	assert.Equal(t, "consent_requested", msg.Headers["event_type"])
	assert.NotEmpty(t, msg.Headers["created_at"])
	assert.JSONEq(t, `{"consent_id":"c-1"}`, string(msg.Value))

	pending, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, w.Poll(ctx), "processed entries are not republished")
}

func TestPollLeavesFailedEntriesPending(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	pub := &recordingPublisher{failKey: "bad"}
	appendEntry(t, s, "bad", "consent_requested")
	appendEntry(t, s, "good", "consent_requested")

	w := newWorker(s, pub)
	assert.Equal(t, 1, w.Poll(ctx))

	pending, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	pub.failKey = ""
	assert.Equal(t, 1, w.Poll(ctx))
}

func TestPollHoldsBackLaterEventsOfFailedConsent(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	pub := &recordingPublisher{failKey: "c-1", failOnce: true}
	appendEntry(t, s, "c-1", "consent_requested")
	appendEntry(t, s, "c-1", "consent_approved")
	appendEntry(t, s, "c-2", "consent_requested")

	w := newWorker(s, pub)
	assert.Equal(t, 1, w.Poll(ctx), "only c-2 is marked")

	pending, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	assert.Equal(t, 2, w.Poll(ctx))
	var c1 []string
	for _, m := range pub.messages {
		if string(m.Key) == "c-1" {
			c1 = append(c1, m.Headers["event_type"])
		}
	}
	// The approval went out once in the failed batch and again in order.
	assert.Equal(t, []string{"consent_approved", "consent_requested", "consent_approved"}, c1)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	old := appendEntry(t, s, "c-1", "consent_requested")
	require.NoError(t, s.MarkProcessed(ctx, old.ID, time.Now().Add(-48*time.Hour)))
	appendEntry(t, s, "c-2", "consent_requested")

	n, err := newWorker(s, &recordingPublisher{}).Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no retention configured")

	w := New(s, &recordingPublisher{}, WithRetention(24*time.Hour), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	n, err = w.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	pending, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending, "pending entries are never pruned")
}

func TestRunDrainsOnShutdown(t *testing.T) {
	s := store.NewInMemory()
	pub := &recordingPublisher{}
	w := New(s, pub, WithPollInterval(time.Hour), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	for i := range 3 {
		appendEntry(t, s, string(rune('a'+i)), "consent_revoked")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 3, pub.count())
}
