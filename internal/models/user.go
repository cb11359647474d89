package models

import "time"

// User is an authenticated identity. The id is assigned once at signup and
// never changes; profile fields mutate independently of identity.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	IsActive     bool
	IsSuperadmin bool
	CreatedAt    time.Time
}
