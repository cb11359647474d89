package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store. It shares the
// connection pool with other stores.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Create creates a new user and fills in its assigned id.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, full_name, is_active, is_superadmin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	email := strings.ToLower(strings.TrimSpace(user.Email))

	var fullName any
	if user.FullName != "" {
		fullName = user.FullName
	}

	err := s.pool.QueryRow(ctx, query,
		email,
		user.PasswordHash,
		fullName,
		user.IsActive,
		user.IsSuperadmin,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	user.Email = email

	log.Debug().
		Int64("user_id", user.ID).
		Bool("is_superadmin", user.IsSuperadmin).
		Msg("Created user")

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, full_name, is_active, is_superadmin, created_at
		FROM users
		WHERE id = $1
	`

	return s.scanUser(s.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email address.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, full_name, is_active, is_superadmin, created_at
		FROM users
		WHERE email = $1
	`

	return s.scanUser(s.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

func (s *UserStore) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var fullName any
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&fullName,
		&u.IsActive,
		&u.IsSuperadmin,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", mapPostgresError(err))
	}

	if fullName != nil {
		u.FullName = fullName.(string)
	}

	return &u, nil
}
