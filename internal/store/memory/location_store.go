package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
)

// LocationStore implements store.LocationStore using in-memory storage.
type LocationStore struct {
	mu sync.RWMutex

	locations map[int64]*models.Location
	nextID    int64
}

// NewLocationStore creates a new in-memory location store.
func NewLocationStore() *LocationStore {
	return &LocationStore{
		locations: make(map[int64]*models.Location),
		nextID:    1,
	}
}

// Create creates a new location, assigning its id.
func (s *LocationStore) Create(ctx context.Context, loc *models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc.ID = s.nextID
	s.nextID++
	if loc.Timezone == "" {
		loc.Timezone = "America/Phoenix"
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now()
	}

	clone := *loc
	s.locations[loc.ID] = &clone

	return nil
}

// Get retrieves a location by ID.
func (s *LocationStore) Get(ctx context.Context, id int64) (*models.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, exists := s.locations[id]
	if !exists {
		return nil, store.ErrLocationNotFound
	}

	clone := *loc
	return &clone, nil
}

// ListByOrganization returns all locations owned by an organization,
// ordered by id.
func (s *LocationStore) ListByOrganization(ctx context.Context, orgID int64) ([]*models.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Location
	for _, loc := range s.locations {
		if loc.OrganizationID == orgID {
			clone := *loc
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}
