package store

import (
	"context"
	"errors"

	"github.com/ascendhq/fieldcrm/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrLocationNotFound     = errors.New("location not found")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrCustomerNotFound     = errors.New("customer not found")

	// ErrAllocationConflict marks a transient failure while reserving a
	// sequence number (lock-wait timeout, serialization failure, deadlock).
	// Callers retry the whole allocation; no number was durably assigned.
	ErrAllocationConflict = errors.New("sequence allocation conflict")

	// ErrStoreUnavailable marks a backend outage (connection failure,
	// resource exhaustion). Callers should surface it as a temporary
	// condition, not a client error.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// OrganizationStore defines the interface for organization persistence.
type OrganizationStore interface {
	Create(ctx context.Context, org *models.Organization) error
	Get(ctx context.Context, id int64) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
}

// LocationStore defines the interface for location persistence.
type LocationStore interface {
	Create(ctx context.Context, loc *models.Location) error
	Get(ctx context.Context, id int64) (*models.Location, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]*models.Location, error)
}

// MembershipStore defines the interface for user-location access grants.
type MembershipStore interface {
	// Put creates the membership row if absent and updates the role if
	// present. Inserting the same (user, location) pair twice is not an
	// error; at most one row exists per pair.
	Put(ctx context.Context, m *models.Membership) error
	Get(ctx context.Context, userID, locationID int64) (*models.Membership, error)
	Delete(ctx context.Context, userID, locationID int64) error
	ListByUser(ctx context.Context, userID int64) ([]*models.Membership, error)
}

// CustomerStore defines the interface for customer persistence.
type CustomerStore interface {
	Create(ctx context.Context, c *models.Customer) error
	Get(ctx context.Context, id int64) (*models.Customer, error)
	// ListByLocation returns customers for one location, optionally
	// filtered by a case-insensitive search over name, phone and email.
	ListByLocation(ctx context.Context, locationID int64, search string) ([]*models.Customer, error)
	SetArchived(ctx context.Context, id int64, archived bool) error
}

// SequenceStore reserves per-organization sequence values.
type SequenceStore interface {
	// NextValue reserves and returns the next counter value for the
	// organization, creating the counter at 1 on first use. Reservations
	// for the same organization are serialized; reservations for
	// different organizations do not block each other. A value reserved
	// by a transaction that later rolls back is never handed out again.
	NextValue(ctx context.Context, orgID int64) (int64, error)
}
