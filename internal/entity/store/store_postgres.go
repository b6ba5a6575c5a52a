package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trustid/internal/entity/models"
	"trustid/internal/platform/database"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

const uniquenessIndex = "entities_uniqueness_key_idx"

// PostgresStore persists entities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to an open transaction.
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

const entityColumns = `id, owner_id, variant, name, verified, attributes, registration_number, uniqueness_key, jurisdiction, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, entity *models.Entity) error {
	attrs, err := json.Marshal(entity.Attributes)
	if err != nil {
		return fmt.Errorf("encode entity attributes: %w", err)
	}
	_, err = s.execer().ExecContext(ctx, `
		INSERT INTO entities (`+entityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(entity.ID),
		uuid.UUID(entity.OwnerID),
		string(entity.Variant),
		entity.Name,
		entity.Verified,
		attrs,
		entity.RegistrationNumber,
		entity.UniquenessKey,
		entity.Jurisdiction,
		entity.CreatedAt,
		entity.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, entity *models.Entity) error {
	attrs, err := json.Marshal(entity.Attributes)
	if err != nil {
		return fmt.Errorf("encode entity attributes: %w", err)
	}
	res, err := s.execer().ExecContext(ctx, `
		UPDATE entities
		SET name = $2, verified = $3, attributes = $4, registration_number = $5,
			uniqueness_key = $6, jurisdiction = $7, updated_at = $8
		WHERE id = $1
	`,
		uuid.UUID(entity.ID),
		entity.Name,
		entity.Verified,
		attrs,
		entity.RegistrationNumber,
		entity.UniquenessKey,
		entity.Jurisdiction,
		entity.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, uniquenessIndex) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update entity: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entity rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	entity, err := scanEntity(s.execer().QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = $1`, uuid.UUID(entityID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find entity: %w", err)
	}
	return entity, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Entity, error) {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE owner_id = $1 ORDER BY created_at, id`, uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []*models.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindFirstIndividualByOwner(ctx context.Context, owner id.UserID) (*models.Entity, error) {
	entity, err := scanEntity(s.execer().QueryRowContext(ctx, `
		SELECT `+entityColumns+`
		FROM entities
		WHERE owner_id = $1 AND variant = $2
		ORDER BY created_at, id
		LIMIT 1
	`, uuid.UUID(owner), string(models.VariantIndividual)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find primary individual: %w", err)
	}
	return entity, nil
}

func (s *PostgresStore) Delete(ctx context.Context, entityID id.EntityID) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, uuid.UUID(entityID))
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entity rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type entityRow interface {
	Scan(dest ...any) error
}

func scanEntity(row entityRow) (*models.Entity, error) {
	var (
		e            models.Entity
		entityID     uuid.UUID
		ownerID      uuid.UUID
		variant      string
		attrs        []byte
		registration sql.NullString
		key          sql.NullString
	)
	if err := row.Scan(&entityID, &ownerID, &variant, &e.Name, &e.Verified, &attrs,
		&registration, &key, &e.Jurisdiction, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ID = id.EntityID(entityID)
	e.OwnerID = id.UserID(ownerID)
	e.Variant = models.Variant(variant)
	e.Attributes = models.Attributes{}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &e.Attributes); err != nil {
			return nil, fmt.Errorf("decode entity attributes: %w", err)
		}
	}
	if registration.Valid {
		e.RegistrationNumber = &registration.String
	}
	if key.Valid {
		e.UniquenessKey = &key.String
	}
	return &e, nil
}
