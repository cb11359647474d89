package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/sequence"
)

// SequenceStore implements store.SequenceStore using PostgreSQL. Each
// organization has one row in customer_counters; reserving a value locks
// that row with SELECT ... FOR UPDATE for the rest of the transaction, so
// concurrent reservations for the same organization serialize in commit
// order while other organizations proceed unblocked.
type SequenceStore struct {
	pool *pgxpool.Pool
}

// NewSequenceStore creates a new PostgreSQL-backed sequence store.
func NewSequenceStore(pool *pgxpool.Pool) *SequenceStore {
	return &SequenceStore{pool: pool}
}

// NextValue reserves and returns the next counter value for the
// organization. If the surrounding work fails after this commits, the
// value stays consumed; gaps are the accepted cost of never reusing a
// number.
func (s *SequenceStore) NextValue(ctx context.Context, orgID int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", mapPostgresError(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	next, err := nextValueTx(ctx, tx, orgID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit reservation: %w", mapPostgresError(err))
	}

	return next, nil
}

// nextValueTx runs the reservation inside the caller's transaction: an
// idempotent insert of the counter row, a locking read, and the write-back.
// The row lock is held until the transaction ends.
func nextValueTx(ctx context.Context, tx pgx.Tx, orgID int64) (int64, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO customer_counters (organization_id, next_value)
		VALUES ($1, 1)
		ON CONFLICT (organization_id) DO NOTHING
	`, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure counter row: %w", mapPostgresError(err))
	}

	var next int64
	err = tx.QueryRow(ctx, `
		SELECT next_value
		FROM customer_counters
		WHERE organization_id = $1
		FOR UPDATE
	`, orgID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to lock counter row: %w", mapPostgresError(err))
	}

	_, err = tx.Exec(ctx, `
		UPDATE customer_counters
		SET next_value = $2, updated_at = now()
		WHERE organization_id = $1
	`, orgID, next+1)
	if err != nil {
		return 0, fmt.Errorf("failed to advance counter: %w", mapPostgresError(err))
	}

	return next, nil
}

// Backfill assigns customer uids to rows created before allocation existed,
// one organization at a time. Within an organization, customers are
// numbered in ascending id order, rows that already carry a uid are left
// untouched, and the counter ends at max assigned + 1. Re-running is safe.
func (s *SequenceStore) Backfill(ctx context.Context) (int, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM organizations ORDER BY id ASC`)
	if err != nil {
		return 0, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err))
	}

	var orgIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan organization id: %w", err)
		}
		orgIDs = append(orgIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating organizations: %w", err)
	}

	total := 0
	for _, orgID := range orgIDs {
		assigned, err := s.backfillOrganization(ctx, orgID)
		if err != nil {
			return total, fmt.Errorf("backfill of organization %d failed: %w", orgID, err)
		}
		total += assigned
	}

	log.Info().Int("assigned", total).Msg("Customer uid backfill complete")
	return total, nil
}

func (s *SequenceStore) backfillOrganization(ctx context.Context, orgID int64) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", mapPostgresError(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	// Hold the counter lock for the whole organization so steady-state
	// allocators queue behind the backfill instead of interleaving. Unlike
	// NextValue this reads without consuming; the write-back below only
	// moves the counter if rows were assigned.
	_, err = tx.Exec(ctx, `
		INSERT INTO customer_counters (organization_id, next_value)
		VALUES ($1, 1)
		ON CONFLICT (organization_id) DO NOTHING
	`, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure counter row: %w", mapPostgresError(err))
	}

	var next int64
	err = tx.QueryRow(ctx, `
		SELECT next_value
		FROM customer_counters
		WHERE organization_id = $1
		FOR UPDATE
	`, orgID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to lock counter row: %w", mapPostgresError(err))
	}

	rows, err := tx.Query(ctx, `
		SELECT c.id
		FROM customers c
		JOIN locations l ON l.id = c.location_id
		WHERE l.organization_id = $1
		  AND (c.customer_uid IS NULL OR c.customer_uid = '')
		ORDER BY c.id ASC
	`, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to list customers without uid: %w", mapPostgresError(err))
	}

	var customerIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan customer id: %w", err)
		}
		customerIDs = append(customerIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating customers: %w", err)
	}

	for _, customerID := range customerIDs {
		uid := sequence.FormatUID(next)
		if _, err := tx.Exec(ctx, `
			UPDATE customers SET customer_uid = $2 WHERE id = $1
		`, customerID, uid); err != nil {
			return 0, fmt.Errorf("failed to assign uid to customer %d: %w", customerID, mapPostgresError(err))
		}
		next++
	}

	// Seed the counter to max assigned + 1.
	if len(customerIDs) > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE customer_counters
			SET next_value = $2, updated_at = now()
			WHERE organization_id = $1
		`, orgID, next); err != nil {
			return 0, fmt.Errorf("failed to seed counter: %w", mapPostgresError(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit backfill: %w", mapPostgresError(err))
	}

	if len(customerIDs) > 0 {
		log.Info().
			Int64("organization_id", orgID).
			Int("assigned", len(customerIDs)).
			Msg("Backfilled customer uids")
	}

	return len(customerIDs), nil
}
