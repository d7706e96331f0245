package models

import (
	"time"

	"github.com/google/uuid"
)

// UserMetadata is the signup metadata stored alongside an identity.
type UserMetadata struct {
	FullName     string  `json:"full_name"`
	Organization string  `json:"organization"`
	Department   *string `json:"department"`
}

// User represents an authenticated identity owned by the identity provider.
// Credentials never leave the provider.
type User struct {
	ID       uuid.UUID
	Email    string
	Metadata UserMetadata

	CreatedAt   time.Time
	ConfirmedAt *time.Time // Nil until the email address has been verified
}

// IsConfirmed returns true once the user has verified their email address.
func (u *User) IsConfirmed() bool {
	return u.ConfirmedAt != nil
}
