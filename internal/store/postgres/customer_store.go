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

// CustomerStore implements store.CustomerStore using PostgreSQL.
type CustomerStore struct {
	pool *pgxpool.Pool
}

// NewCustomerStore creates a new PostgreSQL-backed customer store.
func NewCustomerStore(pool *pgxpool.Pool) *CustomerStore {
	return &CustomerStore{pool: pool}
}

// Create creates a new customer and fills in its assigned id.
func (s *CustomerStore) Create(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (location_id, customer_uid, first_name, last_name, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	var email, phone any
	if c.Email != "" {
		email = c.Email
	}
	if c.Phone != "" {
		phone = c.Phone
	}

	err := s.pool.QueryRow(ctx, query,
		c.LocationID,
		c.CustomerUID,
		c.FirstName,
		c.LastName,
		email,
		phone,
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create customer: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves a customer by ID.
func (s *CustomerStore) Get(ctx context.Context, id int64) (*models.Customer, error) {
	query := `
		SELECT id, location_id, customer_uid, first_name, last_name, email, phone, is_archived, created_at
		FROM customers
		WHERE id = $1
	`

	c, err := scanCustomer(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", mapPostgresError(err))
	}

	return c, nil
}

// ListByLocation returns customers for one location, optionally filtered by
// a case-insensitive search over name, phone and email. Ordered by last
// then first name.
func (s *CustomerStore) ListByLocation(ctx context.Context, locationID int64, search string) ([]*models.Customer, error) {
	query := `
		SELECT id, location_id, customer_uid, first_name, last_name, email, phone, is_archived, created_at
		FROM customers
		WHERE location_id = $1
	`

	args := []any{locationID}

	if search != "" {
		query += ` AND (first_name ILIKE $2 OR last_name ILIKE $2 OR phone ILIKE $2 OR email ILIKE $2)`
		args = append(args, "%"+search+"%")
	}

	query += ` ORDER BY last_name ASC, first_name ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return result, nil
}

// SetArchived updates the archived flag of a customer.
func (s *CustomerStore) SetArchived(ctx context.Context, id int64, archived bool) error {
	query := `
		UPDATE customers
		SET is_archived = $2
		WHERE id = $1
	`

	result, err := s.pool.Exec(ctx, query, id, archived)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrCustomerNotFound
	}

	return nil
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	var uid, email, phone any
	err := row.Scan(
		&c.ID,
		&c.LocationID,
		&uid,
		&c.FirstName,
		&c.LastName,
		&email,
		&phone,
		&c.IsArchived,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if uid != nil {
		c.CustomerUID = uid.(string)
	}
	if email != nil {
		c.Email = email.(string)
	}
	if phone != nil {
		c.Phone = phone.(string)
	}

	return &c, nil
}
