package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/shared"
)

// UserRepository persists [models.User] accounts, looked up by email from the identity provider.
type UserRepository struct {
	db *shared.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *shared.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with a generated ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	user.ID = shared.GenerateID()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `INSERT INTO users (id, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt); err != nil {
		if shared.IsUniqueViolation(err) {
			return fmt.Errorf("%w: user %s already exists", shared.ErrConflict, user.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, name, created_at, updated_at FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, name, created_at, updated_at FROM users WHERE email = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email), email)
}

// FindOrCreateByEmail returns the user with email, creating it when missing.
//
// A concurrent sign-in that wins the insert is resolved by reading its row.
func (r *UserRepository) FindOrCreateByEmail(ctx context.Context, email, name string) (*models.User, bool, error) {
	user, err := r.GetByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	user = &models.User{Email: email, Name: name}
	if err := r.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			existing, err := r.GetByEmail(ctx, email)
			return existing, false, err
		}
		return nil, false, err
	}
	return user, true, nil
}

func (r *UserRepository) scanOne(row *sql.Row, key string) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}
