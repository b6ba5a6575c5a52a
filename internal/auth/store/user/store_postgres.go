package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trustid/internal/auth/models"
	"trustid/internal/platform/database"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

// PostgresStore persists accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, kind, phone, email, service_id, password_hash, created_at`

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(user.ID),
		string(user.Kind),
		user.Phone,
		user.Email,
		user.ServiceID,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return fmt.Errorf("user already exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, "id", uuid.UUID(userID))
}

func (s *PostgresStore) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.findOne(ctx, "phone", phone)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email", email)
}

func (s *PostgresStore) FindByServiceID(ctx context.Context, serviceID string) (*models.User, error) {
	return s.findOne(ctx, "service_id", serviceID)
}

func (s *PostgresStore) ResolveOwner(ctx context.Context, ownerKey string) (id.UserID, error) {
	user, err := resolve(ctx, s, ownerKey)
	if err != nil {
		return id.UserID{}, err
	}
	return user.ID, nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, userID id.UserID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, uuid.UUID(userID), passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res)
}

// Delete removes the account. Its entities go with it through the foreign key.
func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

// findOne looks a user up by a column name fixed at the call site.
func (s *PostgresStore) findOne(ctx context.Context, column string, value any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	var (
		user      models.User
		userID    uuid.UUID
		kind      string
		phone     sql.NullString
		email     sql.NullString
		serviceID sql.NullString
	)
	err := row.Scan(&userID, &kind, &phone, &email, &serviceID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by %s: %w", column, err)
	}
	user.ID = id.UserID(userID)
	user.Kind = models.Kind(kind)
	user.Phone = nullString(phone)
	user.Email = nullString(email)
	user.ServiceID = nullString(serviceID)
	return &user, nil
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
