// Package models holds the persisted entities of the server.
package models

import "time"

// User is an account. PasswordHash and the reset-token fields never leave
// the server.
type User struct {
	ID                   string     `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"-"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	LastLogin            *time.Time `json:"lastLogin,omitempty"`
}
