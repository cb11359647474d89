package models

import "time"

// Customer is a location-scoped record. CustomerUID is the human-readable
// identifier stamped by the sequence allocator at creation time, unique and
// strictly increasing within the owning organization.
type Customer struct {
	ID          int64
	LocationID  int64
	CustomerUID string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	IsArchived  bool
	CreatedAt   time.Time
}

// SequenceCounter backs per-organization customer-uid allocation. NextValue
// starts at 1, never decreases and is only mutated under a row-level lock.
type SequenceCounter struct {
	OrganizationID int64
	NextValue      int64
	UpdatedAt      time.Time
}
