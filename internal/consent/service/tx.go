package service

import (
	"context"
	"sync"
	"time"

	accesslogstore "trustid/internal/accesslog/store"
	alertstore "trustid/internal/alert/store"
	consentstore "trustid/internal/consent/store"
	entitystore "trustid/internal/entity/store"
	"trustid/internal/outbox"
	dErrors "trustid/pkg/domain-errors"
	txcontext "trustid/pkg/platform/tx"
)

// Stores is the set of stores a ledger operation may write. Inside RunInTx
// every member is bound to the same transaction.
type Stores struct {
	Consents  consentstore.Store
	AccessLog accesslogstore.Store
	Alerts    alertstore.Store
	Outbox    outbox.Store
	Entities  entitystore.Store
}

// LedgerTx runs fn atomically: either every write fn makes through stores is
// kept, or none is.
type LedgerTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// DefaultTxTimeout bounds a ledger transaction when the caller set no deadline.
const DefaultTxTimeout = 5 * time.Second

// InMemoryTx serializes ledger transactions behind one lock. Stores record
// the inverse of each write in a journal carried by ctx; on error only those
// writes are undone, so concurrent writes made outside the ledger survive.
type InMemoryTx struct {
	mu      sync.Mutex
	stores  Stores
	timeout time.Duration
}

func NewInMemoryTx(stores Stores) *InMemoryTx {
	return &InMemoryTx{stores: stores, timeout: DefaultTxTimeout}
}

func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, journal := txcontext.WithJournal(ctx)
	if err := fn(ctx, t.stores); err != nil {
		journal.Rollback()
		return err
	}
	journal.Commit()
	return nil
}

var _ LedgerTx = (*InMemoryTx)(nil)
