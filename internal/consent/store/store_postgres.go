package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"trustid/internal/consent/models"
	"trustid/internal/platform/database"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

// PostgresStore persists consents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to a transaction owned by the caller.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const consentColumns = `id, subject_id, requester_id, requester_name, purpose, requested_attributes, attributes, status, granted_on, expires_on, duration_days, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, consent *models.Consent) error {
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO consents (`+consentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		uuid.UUID(consent.ID),
		uuid.UUID(consent.SubjectID),
		uuid.UUID(consent.RequesterID),
		consent.RequesterName,
		consent.Purpose,
		pq.Array(consent.RequestedAttributes),
		pq.Array(consent.Attributes),
		string(consent.Status),
		consent.GrantedOn,
		consent.ExpiresOn,
		consent.DurationDays,
		consent.CreatedAt,
		consent.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	consent, err := scanConsent(s.execer().QueryRowContext(ctx,
		`SELECT `+consentColumns+` FROM consents WHERE id = $1`, uuid.UUID(consentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return consent, nil
}

// Execute locks the row with SELECT ... FOR UPDATE. Outside a caller
// transaction it opens and commits its own.
func (s *PostgresStore) Execute(ctx context.Context, consentID id.ConsentID, mutate func(*models.Consent) error) (*models.Consent, error) {
	if s.tx != nil {
		return executeWithTx(ctx, s.tx, consentID, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin consent execute tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	consent, err := executeWithTx(ctx, tx, consentID, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit consent execute: %w", err)
	}
	return consent, nil
}

func executeWithTx(ctx context.Context, tx *sql.Tx, consentID id.ConsentID, mutate func(*models.Consent) error) (*models.Consent, error) {
	consent, err := scanConsent(tx.QueryRowContext(ctx,
		`SELECT `+consentColumns+` FROM consents WHERE id = $1 FOR UPDATE`, uuid.UUID(consentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent for execute: %w", err)
	}

	prev := consent.Status
	if err := mutate(consent); err != nil {
		return nil, err
	}
	if err := updateConsent(ctx, tx, consent, prev); err != nil {
		return nil, err
	}
	return consent, nil
}

// updateConsent writes c only while the stored status still equals prev.
func updateConsent(ctx context.Context, exec dbExecutor, c *models.Consent, prev models.Status) error {
	res, err := exec.ExecContext(ctx, `
		UPDATE consents
		SET attributes = $3, status = $4, granted_on = $5, expires_on = $6, duration_days = $7, updated_at = $8
		WHERE id = $1 AND status = $2
	`,
		uuid.UUID(c.ID),
		string(prev),
		pq.Array(c.Attributes),
		string(c.Status),
		c.GrantedOn,
		c.ExpiresOn,
		c.DurationDays,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.EntityID) ([]*models.Consent, error) {
	return s.list(ctx, `
		SELECT `+consentColumns+` FROM consents
		WHERE subject_id = $1
		ORDER BY created_at DESC, seq DESC
	`, uuid.UUID(subjectID))
}

func (s *PostgresStore) ListByRequester(ctx context.Context, requesterID id.EntityID) ([]*models.Consent, error) {
	return s.list(ctx, `
		SELECT `+consentColumns+` FROM consents
		WHERE requester_id = $1
		ORDER BY granted_on DESC NULLS LAST, seq DESC
	`, uuid.UUID(requesterID))
}

func (s *PostgresStore) ListOpenByEntity(ctx context.Context, entityID id.EntityID) ([]*models.Consent, error) {
	return s.list(ctx, `
		SELECT `+consentColumns+` FROM consents
		WHERE (subject_id = $1 OR requester_id = $1) AND status IN ('pending', 'active')
		ORDER BY seq
	`, uuid.UUID(entityID))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Consent, error) {
	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var out []*models.Consent
	for rows.Next() {
		consent, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		out = append(out, consent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return out, nil
}

type consentRow interface {
	Scan(dest ...any) error
}

func scanConsent(row consentRow) (*models.Consent, error) {
	var (
		c           models.Consent
		consentID   uuid.UUID
		subjectID   uuid.UUID
		requesterID uuid.UUID
		status      string
		grantedOn   sql.NullTime
		expiresOn   sql.NullTime
	)
	if err := row.Scan(&consentID, &subjectID, &requesterID, &c.RequesterName, &c.Purpose,
		pq.Array(&c.RequestedAttributes), pq.Array(&c.Attributes), &status,
		&grantedOn, &expiresOn, &c.DurationDays, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ID = id.ConsentID(consentID)
	c.SubjectID = id.EntityID(subjectID)
	c.RequesterID = id.EntityID(requesterID)
	c.Status = models.Status(status)
	if !c.Status.IsStored() {
		return nil, fmt.Errorf("consent %s has unknown status %q", consentID, status)
	}
	if grantedOn.Valid {
		c.GrantedOn = &grantedOn.Time
	}
	if expiresOn.Valid {
		c.ExpiresOn = &expiresOn.Time
	}
	return &c, nil
}
