package types

import "time"

// User represents an account in the system.
// It contains identity and audit metadata.
type User struct {
	// ID is the opaque unique identifier of the user (a UUID).
	ID string `json:"id" db:"id"`

	// Email is the user's login address, stored trimmed and lower-cased.
	Email string `json:"email" db:"email"`

	// FullName is the user's display name.
	FullName string `json:"full_name" db:"full_name"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
