package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	accesslogstore "trustid/internal/accesslog/store"
	alertstore "trustid/internal/alert/store"
	consentstore "trustid/internal/consent/store"
	entitystore "trustid/internal/entity/store"
	outboxstore "trustid/internal/outbox/store"
	dErrors "trustid/pkg/domain-errors"
)

// PostgresTx binds every ledger store to one database transaction.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: DefaultTxTimeout}
}

// PostgresStores returns the non-transactional stores for reads.
func PostgresStores(db *sql.DB) Stores {
	return Stores{
		Consents:  consentstore.NewPostgres(db),
		AccessLog: accesslogstore.NewPostgres(db),
		Alerts:    alertstore.NewPostgres(db),
		Outbox:    outboxstore.NewPostgres(db),
		Entities:  entitystore.NewPostgres(db),
	}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
	}()

	stores := Stores{
		Consents:  consentstore.NewPostgresTx(tx),
		AccessLog: accesslogstore.NewPostgresTx(tx),
		Alerts:    alertstore.NewPostgresTx(tx),
		Outbox:    outboxstore.NewPostgresTx(tx),
		Entities:  entitystore.NewPostgresTx(tx),
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

var _ LedgerTx = (*PostgresTx)(nil)
