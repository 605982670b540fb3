// Package user defines the per-user progression record.
package user

import "time"

// User carries the durable progression state. Level is always derived from
// TotalXP and the two are written together; they are never allowed to drift.
type User struct {
	ID        string
	Username  string
	TotalXP   int
	Level     int
	CreatedAt time.Time
	UpdatedAt time.Time
}
