// Package domain contains core domain types for the botchat application.
package domain

import (
	"time"
)

// Credential is a stored, username-keyed authentication and profile record.
// Username is the store's only key; re-registering a username replaces the
// record entirely.
type Credential struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Email        string    `json:"email"`
	DateOfBirth  string    `json:"dob"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
