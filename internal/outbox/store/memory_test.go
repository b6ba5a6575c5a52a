package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustid/internal/outbox"
	txcontext "trustid/pkg/platform/tx"
)

func entry(t *testing.T, aggregateID string) *outbox.Entry {
	t.Helper()
	e, err := outbox.NewEntry("consent", aggregateID, "consent_requested", map[string]string{"id": aggregateID}, time.Now())
	require.NoError(t, err)
	return e
}

func TestInMemoryFetchAndMark(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	first, second, third := entry(t, "a"), entry(t, "b"), entry(t, "c")
	for _, e := range []*outbox.Entry{first, second, third} {
		require.NoError(t, s.Append(ctx, e))
	}

	batch, err := s.FetchUnprocessed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, first.ID, batch[0].ID)

	require.NoError(t, s.MarkProcessed(ctx, first.ID, time.Now()))
	require.Error(t, s.MarkProcessed(ctx, first.ID, time.Now()), "already processed")

	batch, err = s.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, second.ID, batch[0].ID)

	pending, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
}

func TestInMemoryRollbackKeepsPublishedMarks(t *testing.T) {
	bg := context.Background()
	s := NewInMemory()
	published := entry(t, "a")
	require.NoError(t, s.Append(bg, published))

	ctx, journal := txcontext.WithJournal(bg)
	require.NoError(t, s.Append(ctx, entry(t, "b")))
	require.NoError(t, s.MarkProcessed(bg, published.ID, time.Now()))
	journal.Rollback()

	all := s.All()
	require.Len(t, all, 1)
	assert.False(t, all[0].IsPending(), "a publish mark made outside the transaction stays")
}
