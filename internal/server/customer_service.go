package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/auth"
	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/sequence"
	"github.com/ascendhq/fieldcrm/internal/store"
)

// CustomerService is the tenant-scoped customer API. Every operation runs
// the access gate against the owning location before touching data; lookups
// by primary key resolve the owning location first so a caller cannot probe
// other tenants' ids.
type CustomerService struct {
	customers store.CustomerStore
	locations store.LocationStore
	gate      *auth.Gate
	allocator *sequence.Allocator
}

// NewCustomerService creates a customer service over the given stores.
func NewCustomerService(
	customers store.CustomerStore,
	locations store.LocationStore,
	gate *auth.Gate,
	allocator *sequence.Allocator,
) *CustomerService {
	return &CustomerService{
		customers: customers,
		locations: locations,
		gate:      gate,
		allocator: allocator,
	}
}

// CreateCustomerParams are the inputs for creating a customer at a location.
type CreateCustomerParams struct {
	LocationID int64
	FirstName  string
	LastName   string
	Email      string
	Phone      string
}

// Create creates a customer with a freshly allocated customer uid. The uid
// is reserved before the insert; if the insert fails the number is lost,
// which is fine, uids only ever move forward.
func (s *CustomerService) Create(ctx context.Context, userID int64, p CreateCustomerParams) (*models.Customer, error) {
	loc, err := s.resolveLocation(ctx, p.LocationID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.CheckAccess(ctx, userID, loc.ID); err != nil {
		return nil, err
	}

	if p.FirstName == "" && p.LastName == "" {
		return nil, errors.New("customer name is required")
	}

	uid, err := s.allocator.NextID(ctx, loc.OrganizationID)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		LocationID:  loc.ID,
		CustomerUID: uid,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		Phone:       p.Phone,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	log.Debug().
		Int64("customer_id", customer.ID).
		Str("customer_uid", customer.CustomerUID).
		Int64("location_id", loc.ID).
		Msg("Created customer")

	return customer, nil
}

// List returns the customers of a location, optionally filtered by search.
func (s *CustomerService) List(ctx context.Context, userID, locationID int64, search string) ([]*models.Customer, error) {
	loc, err := s.resolveLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.CheckAccess(ctx, userID, loc.ID); err != nil {
		return nil, err
	}

	customers, err := s.customers.ListByLocation(ctx, loc.ID, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	return customers, nil
}

// Get fetches a customer by id. The owning location is resolved from the
// row itself and gated, so the caller's claimed location is irrelevant.
func (s *CustomerService) Get(ctx context.Context, userID, customerID int64) (*models.Customer, error) {
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			return nil, store.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	if err := s.gate.CheckAccess(ctx, userID, customer.LocationID); err != nil {
		return nil, err
	}

	return customer, nil
}

// SetArchived archives or restores a customer after gating its location.
func (s *CustomerService) SetArchived(ctx context.Context, userID, customerID int64, archived bool) (*models.Customer, error) {
	customer, err := s.Get(ctx, userID, customerID)
	if err != nil {
		return nil, err
	}

	if err := s.customers.SetArchived(ctx, customerID, archived); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	customer.IsArchived = archived
	return customer, nil
}

func (s *CustomerService) resolveLocation(ctx context.Context, locationID int64) (*models.Location, error) {
	loc, err := s.locations.Get(ctx, locationID)
	if err != nil {
		if errors.Is(err, store.ErrLocationNotFound) {
			return nil, store.ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to resolve location: %w", err)
	}
	return loc, nil
}
