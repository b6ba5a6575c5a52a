package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trustid/internal/onboarding/models"
	"trustid/internal/platform/database"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, name, email, registration_number, jurisdiction, address, status, created_at, decided_by, decided_at`

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO org_requests (id, name, email, registration_number, jurisdiction, address, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(req.ID),
		req.Name,
		req.Email,
		req.RegistrationNumber,
		req.Jurisdiction,
		req.Address,
		string(req.Status),
		req.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert org request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reqID id.OrgRequestID) (*models.Request, error) {
	req, err := scanRequest(s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM org_requests WHERE id = $1`, uuid.UUID(reqID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find org request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM org_requests
		WHERE status = $1
		ORDER BY created_at DESC, seq DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list org requests: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan org request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate org requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Transition(ctx context.Context, reqID id.OrgRequestID, from, to models.Status, d Decision) (*models.Request, error) {
	var (
		by any
		at any
	)
	if !d.By.IsNil() {
		by = uuid.UUID(d.By)
	}
	if !d.At.IsZero() {
		at = d.At
	}
	req, err := scanRequest(s.db.QueryRowContext(ctx, `
		UPDATE org_requests SET status = $3, decided_by = $4, decided_at = $5
		WHERE id = $1 AND status = $2
		RETURNING `+requestColumns,
		uuid.UUID(reqID), string(from), string(to), by, at))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition org request: %w", err)
	}
	if _, err := s.FindByID(ctx, reqID); err != nil {
		return nil, err
	}
	return nil, sentinel.ErrInvalidState
}

type requestRow interface {
	Scan(dest ...any) error
}

func scanRequest(row requestRow) (*models.Request, error) {
	var (
		r         models.Request
		reqID     uuid.UUID
		status    string
		decidedBy uuid.NullUUID
		decidedAt sql.NullTime
	)
	if err := row.Scan(&reqID, &r.Name, &r.Email, &r.RegistrationNumber, &r.Jurisdiction, &r.Address,
		&status, &r.CreatedAt, &decidedBy, &decidedAt); err != nil {
		return nil, err
	}
	r.ID = id.OrgRequestID(reqID)
	r.Status = models.Status(status)
	if decidedBy.Valid {
		r.DecidedBy = id.UserID(decidedBy.UUID)
	}
	if decidedAt.Valid {
		at := decidedAt.Time.In(time.UTC)
		r.DecidedAt = &at
	}
	return &r, nil
}
