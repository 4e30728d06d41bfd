// File: internal/shared/user_response.go
package shared

import (
	"time"
)

// AccountResponse defines the account data sent in session responses.
type AccountResponse struct {
	UID          string     `json:"uid"`
	Name         string     `json:"name"`
	Handle       string     `json:"handle"`
	Email        string     `json:"email"`
	PhotoURL     string     `json:"photoURL,omitempty"`
	AuthProvider string     `json:"provider"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}
