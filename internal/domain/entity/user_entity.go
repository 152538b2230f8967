package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Password always holds a bcrypt hash once the user has been persisted.
type User struct {
	ID        string
	Email     string
	Password  string
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
