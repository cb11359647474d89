package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ascendhq/fieldcrm/internal/models"
)

// SequenceStore implements store.SequenceStore with a mutex per
// organization, the in-memory equivalent of a row-level lock: reservations
// for the same organization serialize, different organizations proceed
// independently.
type SequenceStore struct {
	mu sync.Mutex

	counters map[int64]*counter
}

type counter struct {
	mu        sync.Mutex
	next      int64
	updatedAt time.Time
}

// NewSequenceStore creates a new in-memory sequence store.
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{
		counters: make(map[int64]*counter),
	}
}

// NextValue reserves and returns the next counter value for the
// organization, creating the counter at 1 on first use.
func (s *SequenceStore) NextValue(ctx context.Context, orgID int64) (int64, error) {
	s.mu.Lock()
	c, exists := s.counters[orgID]
	if !exists {
		c = &counter{next: 1}
		s.counters[orgID] = c
	}
	s.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.next
	c.next++
	c.updatedAt = time.Now()

	return n, nil
}

// Counter returns a snapshot of the organization's counter, or nil if the
// organization has never allocated.
func (s *SequenceStore) Counter(orgID int64) *models.SequenceCounter {
	s.mu.Lock()
	c, exists := s.counters[orgID]
	s.mu.Unlock()
	if !exists {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return &models.SequenceCounter{
		OrganizationID: orgID,
		NextValue:      c.next,
		UpdatedAt:      c.updatedAt,
	}
}
