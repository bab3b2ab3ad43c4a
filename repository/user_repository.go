package repository

import (
	"context"
	"errors"

	"catastro-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users and their
// capability grants
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

// GetByID retrieves a user with their capability grants
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, password_hash, name, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	user.Capabilities, err = r.listCapabilities(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetByEmail retrieves a user by email with their capability grants
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) listCapabilities(ctx context.Context, userID uuid.UUID) ([]models.Capability, error) {
	rows, err := r.db.Query(ctx, `SELECT capability FROM user_capabilities WHERE user_id = $1 ORDER BY capability`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var capabilities []models.Capability
	for rows.Next() {
		var capability models.Capability
		if err := rows.Scan(&capability); err != nil {
			return nil, err
		}
		capabilities = append(capabilities, capability)
	}

	return capabilities, rows.Err()
}

// GrantCapability records a capability grant; granting twice is a no-op
func (r *UserRepository) GrantCapability(ctx context.Context, userID uuid.UUID, capability models.Capability) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_capabilities (user_id, capability)
		VALUES ($1, $2)
		ON CONFLICT (user_id, capability) DO NOTHING`, userID, capability)
	return err
}

// RevokeCapability removes a capability grant
func (r *UserRepository) RevokeCapability(ctx context.Context, userID uuid.UUID, capability models.Capability) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_capabilities WHERE user_id = $1 AND capability = $2`, userID, capability)
	return err
}

// ListByRole retrieves all users holding a role
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	query := `
		SELECT id, email, password_hash, name, role, created_at, updated_at
		FROM users
		WHERE role = $1
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.Name,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
