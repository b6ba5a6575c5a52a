package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trustid/internal/directory/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const providerColumns = `entity_id, name, description, category, website, contact_email,
	verified, government_service, active, created_at, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, entityID id.EntityID) (*models.Provider, error) {
	p, err := scanProvider(s.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM service_providers WHERE entity_id = $1`, uuid.UUID(entityID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find service provider: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Provider, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+providerColumns+`
		FROM service_providers
		WHERE active
		ORDER BY name, entity_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list service providers: %w", err)
	}
	defer rows.Close()

	var out []*models.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service provider: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service providers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, p *models.Provider) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_providers (`+providerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (entity_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			website = EXCLUDED.website,
			contact_email = EXCLUDED.contact_email,
			verified = EXCLUDED.verified,
			government_service = EXCLUDED.government_service,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`,
		uuid.UUID(p.EntityID),
		p.Name,
		p.Description,
		p.Category,
		p.Website,
		p.ContactEmail,
		p.Verified,
		p.GovernmentService,
		p.Active,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save service provider: %w", err)
	}
	return nil
}

type providerRow interface {
	Scan(dest ...any) error
}

func scanProvider(row providerRow) (*models.Provider, error) {
	var (
		p        models.Provider
		entityID uuid.UUID
	)
	if err := row.Scan(&entityID, &p.Name, &p.Description, &p.Category, &p.Website, &p.ContactEmail,
		&p.Verified, &p.GovernmentService, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.EntityID = id.EntityID(entityID)
	return &p, nil
}
