package models

import "time"

// Location is a business site owned by exactly one organization for its
// lifetime. All customer data is scoped to a location.
type Location struct {
	ID             int64
	OrganizationID int64
	Name           string
	Timezone       string
	CreatedAt      time.Time
}

// Membership roles. The access decision treats any membership row as
// "has access"; the role is informational for the layers above.
const (
	RoleTech       = "tech"
	RoleDispatcher = "dispatcher"
	RoleManager    = "manager"
	RoleOwner      = "owner"
)

// Membership grants a user access to a location. At most one row exists
// per (user, location) pair.
type Membership struct {
	UserID     int64
	LocationID int64
	Role       string
}
