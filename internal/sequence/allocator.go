package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/store"
	"github.com/ascendhq/fieldcrm/internal/telemetry"
)

const (
	uidPrefix = "CUS"
	uidWidth  = 6

	// maxAttempts bounds retries of a conflicted reservation. Each retry
	// re-enters the store and takes a fresh number, so a retried request
	// never produces a duplicate id.
	maxAttempts = 3
)

// FormatUID renders a counter value as a customer identifier, e.g.
// CUS-000123. The prefix is organization-agnostic; uniqueness and ordering
// come from the per-organization counter.
func FormatUID(n int64) string {
	return fmt.Sprintf("%s-%0*d", uidPrefix, uidWidth, n)
}

// Allocator hands out customer identifiers that are unique and strictly
// increasing per organization, even under concurrent callers. Transient
// conflicts from the store are retried with backoff; numbers reserved by a
// transaction that rolls back are abandoned, so gaps are possible and
// accepted.
type Allocator struct {
	seq store.SequenceStore
}

// NewAllocator creates an allocator over the given sequence store.
func NewAllocator(seq store.SequenceStore) *Allocator {
	return &Allocator{seq: seq}
}

// NextID reserves the next value for the organization and returns it
// formatted. Only store.ErrAllocationConflict is retried; everything else
// surfaces immediately.
func (a *Allocator) NextID(ctx context.Context, orgID int64) (string, error) {
	metrics := telemetry.GetMetrics()
	started := time.Now()

	operation := func() (int64, error) {
		n, err := a.seq.NextValue(ctx, orgID)
		if err != nil {
			if errors.Is(err, store.ErrAllocationConflict) {
				metrics.SequenceConflictsTotal.Add(ctx, 1)
				log.Debug().Int64("organization_id", orgID).Msg("allocation conflict, retrying")
				return 0, err
			}
			return 0, backoff.Permanent(err)
		}
		return n, nil
	}

	n, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		return "", fmt.Errorf("failed to allocate customer uid: %w", err)
	}

	metrics.SequenceAllocationsTotal.Add(ctx, 1)
	metrics.SequenceAllocationDuration.Record(ctx, float64(time.Since(started).Milliseconds()))

	return FormatUID(n), nil
}
