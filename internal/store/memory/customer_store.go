package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
)

// CustomerStore implements store.CustomerStore using in-memory storage.
type CustomerStore struct {
	mu sync.RWMutex

	customers map[int64]*models.Customer
	nextID    int64
}

// NewCustomerStore creates a new in-memory customer store.
func NewCustomerStore() *CustomerStore {
	return &CustomerStore{
		customers: make(map[int64]*models.Customer),
		nextID:    1,
	}
}

// Create creates a new customer, assigning its id.
func (s *CustomerStore) Create(ctx context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.nextID
	s.nextID++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	clone := *c
	s.customers[c.ID] = &clone

	return nil
}

// Get retrieves a customer by ID.
func (s *CustomerStore) Get(ctx context.Context, id int64) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.customers[id]
	if !exists {
		return nil, store.ErrCustomerNotFound
	}

	clone := *c
	return &clone, nil
}

// ListByLocation returns customers for one location, optionally filtered by
// a case-insensitive substring match on name, phone or email. Ordered by
// last then first name.
func (s *CustomerStore) ListByLocation(ctx context.Context, locationID int64, search string) ([]*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(search))

	var result []*models.Customer
	for _, c := range s.customers {
		if c.LocationID != locationID {
			continue
		}
		if term != "" && !customerMatches(c, term) {
			continue
		}
		clone := *c
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})

	return result, nil
}

// SetArchived updates the archived flag of a customer.
func (s *CustomerStore) SetArchived(ctx context.Context, id int64, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.customers[id]
	if !exists {
		return store.ErrCustomerNotFound
	}

	c.IsArchived = archived

	return nil
}

func customerMatches(c *models.Customer, term string) bool {
	return strings.Contains(strings.ToLower(c.FirstName), term) ||
		strings.Contains(strings.ToLower(c.LastName), term) ||
		strings.Contains(strings.ToLower(c.Phone), term) ||
		strings.Contains(strings.ToLower(c.Email), term)
}
