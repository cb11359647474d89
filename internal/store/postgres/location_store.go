package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
)

// LocationStore implements store.LocationStore using PostgreSQL.
type LocationStore struct {
	pool *pgxpool.Pool
}

// NewLocationStore creates a new PostgreSQL-backed location store.
func NewLocationStore(pool *pgxpool.Pool) *LocationStore {
	return &LocationStore{pool: pool}
}

// Create creates a new location and fills in its assigned id.
func (s *LocationStore) Create(ctx context.Context, loc *models.Location) error {
	if loc.Timezone == "" {
		loc.Timezone = "America/Phoenix"
	}

	query := `
		INSERT INTO locations (organization_id, name, timezone)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query, loc.OrganizationID, loc.Name, loc.Timezone).
		Scan(&loc.ID, &loc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create location: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves a location by ID.
func (s *LocationStore) Get(ctx context.Context, id int64) (*models.Location, error) {
	query := `
		SELECT id, organization_id, name, timezone, created_at
		FROM locations
		WHERE id = $1
	`

	var loc models.Location
	err := s.pool.QueryRow(ctx, query, id).
		Scan(&loc.ID, &loc.OrganizationID, &loc.Name, &loc.Timezone, &loc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to get location: %w", mapPostgresError(err))
	}

	return &loc, nil
}

// ListByOrganization returns all locations owned by an organization,
// ordered by id.
func (s *LocationStore) ListByOrganization(ctx context.Context, orgID int64) ([]*models.Location, error) {
	query := `
		SELECT id, organization_id, name, timezone, created_at
		FROM locations
		WHERE organization_id = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.Location
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(&loc.ID, &loc.OrganizationID, &loc.Name, &loc.Timezone, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		result = append(result, &loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}

	return result, nil
}
