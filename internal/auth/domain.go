package auth

import (
	"time"

	"github.com/munigestion/munigestion/internal/authz"
)

// Account represents a user account able to authenticate.
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
