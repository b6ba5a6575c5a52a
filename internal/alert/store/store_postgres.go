package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trustid/internal/alert/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
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
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const alertColumns = `id, subject_id, severity, title, message, acknowledged, created_at`

func (s *PostgresStore) Create(ctx context.Context, alert *models.Alert) error {
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO security_alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(alert.ID),
		uuid.UUID(alert.SubjectID),
		string(alert.Severity),
		alert.Title,
		alert.Message,
		alert.Acknowledged,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert security alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	alert, err := scanAlert(s.execer().QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM security_alerts WHERE id = $1`, uuid.UUID(alertID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find security alert: %w", err)
	}
	return alert, nil
}

func (s *PostgresStore) Acknowledge(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	alert, err := scanAlert(s.execer().QueryRowContext(ctx, `
		UPDATE security_alerts SET acknowledged = TRUE
		WHERE id = $1
		RETURNING `+alertColumns, uuid.UUID(alertID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("acknowledge security alert: %w", err)
	}
	return alert, nil
}

func (s *PostgresStore) Delete(ctx context.Context, alertID id.AlertID) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM security_alerts WHERE id = $1`, uuid.UUID(alertID))
	if err != nil {
		return fmt.Errorf("delete security alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete security alert rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListForSubject(ctx context.Context, subjectID id.EntityID) ([]*models.Alert, error) {
	rows, err := s.execer().QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM security_alerts
		WHERE subject_id = $1
		ORDER BY created_at DESC, seq DESC
	`, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list security alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan security alert: %w", err)
		}
		out = append(out, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security alerts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteForSubject(ctx context.Context, subjectID id.EntityID) (int64, error) {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM security_alerts WHERE subject_id = $1`, uuid.UUID(subjectID))
	if err != nil {
		return 0, fmt.Errorf("delete security alerts for subject: %w", err)
	}
	return res.RowsAffected()
}

type alertRow interface {
	Scan(dest ...any) error
}

func scanAlert(row alertRow) (*models.Alert, error) {
	var (
		a        models.Alert
		alertID  uuid.UUID
		subject  uuid.UUID
		severity string
	)
	if err := row.Scan(&alertID, &subject, &severity, &a.Title, &a.Message, &a.Acknowledged, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ID = id.AlertID(alertID)
	a.SubjectID = id.EntityID(subject)
	a.Severity = models.Severity(severity)
	return &a, nil
}
