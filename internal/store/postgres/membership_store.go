package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
)

// MembershipStore implements store.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

// Put creates the membership row if absent and updates the role if present.
// The composite primary key guarantees at most one row per (user, location)
// pair, so repeated puts are safe.
func (s *MembershipStore) Put(ctx context.Context, m *models.Membership) error {
	if m.Role == "" {
		m.Role = models.RoleTech
	}

	query := `
		INSERT INTO user_locations (user_id, location_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, location_id) DO UPDATE SET role = EXCLUDED.role
	`

	if _, err := s.pool.Exec(ctx, query, m.UserID, m.LocationID, m.Role); err != nil {
		return fmt.Errorf("failed to put membership: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("user_id", m.UserID).
		Int64("location_id", m.LocationID).
		Str("role", m.Role).
		Msg("Stored membership")

	return nil
}

// Get retrieves the membership for the exact (user, location) pair.
func (s *MembershipStore) Get(ctx context.Context, userID, locationID int64) (*models.Membership, error) {
	query := `
		SELECT user_id, location_id, role
		FROM user_locations
		WHERE user_id = $1 AND location_id = $2
	`

	var m models.Membership
	err := s.pool.QueryRow(ctx, query, userID, locationID).
		Scan(&m.UserID, &m.LocationID, &m.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", mapPostgresError(err))
	}

	return &m, nil
}

// Delete removes the membership for the (user, location) pair.
func (s *MembershipStore) Delete(ctx context.Context, userID, locationID int64) error {
	query := `
		DELETE FROM user_locations
		WHERE user_id = $1 AND location_id = $2
	`

	result, err := s.pool.Exec(ctx, query, userID, locationID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}

	return nil
}

// ListByUser returns all memberships for a user, ordered by location id.
func (s *MembershipStore) ListByUser(ctx context.Context, userID int64) ([]*models.Membership, error) {
	query := `
		SELECT user_id, location_id, role
		FROM user_locations
		WHERE user_id = $1
		ORDER BY location_id ASC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.UserID, &m.LocationID, &m.Role); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		result = append(result, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return result, nil
}
