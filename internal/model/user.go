package model

import (
	"fmt"
	"time"
)

// Admin is an account allowed into the administration API.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionUser is the admin identity bound to a session. It is the only
// admin data ever returned to clients.
type SessionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public returns the identity fields stored in a session.
func (a *Admin) Public() *SessionUser {
	return &SessionUser{ID: a.ID, Username: a.Username, Email: a.Email}
}

// MinPasswordLength is the shortest password accepted on change.
const MinPasswordLength = 8

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
