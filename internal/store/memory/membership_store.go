package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
)

type membershipKey struct {
	userID     int64
	locationID int64
}

// MembershipStore implements store.MembershipStore using in-memory storage.
type MembershipStore struct {
	mu sync.RWMutex

	memberships map[membershipKey]*models.Membership
}

// NewMembershipStore creates a new in-memory membership store.
func NewMembershipStore() *MembershipStore {
	return &MembershipStore{
		memberships: make(map[membershipKey]*models.Membership),
	}
}

// Put creates or updates the membership row for the (user, location) pair.
// At most one row exists per pair; repeated puts are not an error.
func (s *MembershipStore) Put(ctx context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *m
	s.memberships[membershipKey{m.UserID, m.LocationID}] = &clone

	return nil
}

// Get retrieves the membership for the exact (user, location) pair.
func (s *MembershipStore) Get(ctx context.Context, userID, locationID int64) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.memberships[membershipKey{userID, locationID}]
	if !exists {
		return nil, store.ErrMembershipNotFound
	}

	clone := *m
	return &clone, nil
}

// Delete removes the membership for the (user, location) pair.
func (s *MembershipStore) Delete(ctx context.Context, userID, locationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{userID, locationID}
	if _, exists := s.memberships[key]; !exists {
		return store.ErrMembershipNotFound
	}

	delete(s.memberships, key)

	return nil
}

// ListByUser returns all memberships for a user, ordered by location id.
func (s *MembershipStore) ListByUser(ctx context.Context, userID int64) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Membership
	for _, m := range s.memberships {
		if m.UserID == userID {
			clone := *m
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].LocationID < result[j].LocationID })

	return result, nil
}
