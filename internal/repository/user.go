package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/hypeshelf/internal/domain"
)

const userColumns = `id, external_id, email, display_name, role, created_at, updated_at`

// UserRepository handles user data access operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByExternalID retrieves a user through the unique external id index.
func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	var user domain.User
	err := conn(ctx, r.db).GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by external id %s: %w", externalID, err)
	}
	return &user, nil
}

// Create inserts a user. If a row with the same external id already exists it is
// returned unchanged and created is false.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (*domain.User, bool, error) {
	var result domain.User
	err := conn(ctx, r.db).QueryRowxContext(ctx,
		`INSERT INTO users (external_id, email, display_name, role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (external_id) DO NOTHING
		 RETURNING `+userColumns,
		user.ExternalID, user.Email, user.DisplayName, string(user.Role),
	).StructScan(&result)
	if err == nil {
		return &result, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("create user: %w", translate(err))
	}

	existing, err := r.FindByExternalID(ctx, user.ExternalID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// UpdateRole changes the role of the user with the given external id.
func (r *UserRepository) UpdateRole(ctx context.Context, externalID string, role domain.Role) (*domain.User, error) {
	var user domain.User
	err := conn(ctx, r.db).QueryRowxContext(ctx,
		`UPDATE users SET role = $2, updated_at = NOW()
		 WHERE external_id = $1
		 RETURNING `+userColumns,
		externalID, string(role),
	).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update role for %s: %w", externalID, err)
	}
	return &user, nil
}
