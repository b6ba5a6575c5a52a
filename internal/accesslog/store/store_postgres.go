package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"trustid/internal/accesslog/models"
	id "trustid/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.Entry) error {
	var consentID uuid.NullUUID
	if entry.ConsentID != nil {
		consentID = uuid.NullUUID{UUID: uuid.UUID(*entry.ConsentID), Valid: true}
	}
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO access_logs (id, subject_id, consent_id, service, purpose, attributes, status, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.SubjectID),
		consentID,
		entry.Service,
		entry.Purpose,
		pq.Array(entry.Attributes),
		entry.Status,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append access log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListForSubject(ctx context.Context, subjectID id.EntityID) ([]*models.Entry, error) {
	rows, err := s.execer().QueryContext(ctx, `
		SELECT id, subject_id, consent_id, service, purpose, attributes, status, ts
		FROM access_logs
		WHERE subject_id = $1
		ORDER BY ts DESC, seq DESC
	`, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		var (
			e         models.Entry
			entryID   uuid.UUID
			subject   uuid.UUID
			consentID uuid.NullUUID
			attrs     []string
		)
		if err := rows.Scan(&entryID, &subject, &consentID, &e.Service, &e.Purpose,
			pq.Array(&attrs), &e.Status, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		e.ID = id.AccessLogID(entryID)
		e.SubjectID = id.EntityID(subject)
		if consentID.Valid {
			cid := id.ConsentID(consentID.UUID)
			e.ConsentID = &cid
		}
		e.Attributes = attrs
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access logs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) EraseForSubject(ctx context.Context, subjectID id.EntityID) (int64, error) {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM access_logs WHERE subject_id = $1`, uuid.UUID(subjectID))
	if err != nil {
		return 0, fmt.Errorf("erase access logs: %w", err)
	}
	return res.RowsAffected()
}
