package models

import "time"

// Organization is the root of tenant isolation. It owns zero or more
// locations and one customer-uid counter.
type Organization struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
