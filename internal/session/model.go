// File: internal/session/model.go
package session

import (
	"time"

	"prepwise_auth/internal/common"
	"prepwise_auth/internal/shared"
)

// Auth providers recorded on an account.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderGitHub   = "github"
)

// Account is the application's record of a user. Credentials live with the
// identity provider; no password is ever stored here.
type Account struct {
	UID          string  `gorm:"type:varchar(128);primaryKey"`
	Name         string  `gorm:"type:varchar(255);not null"`
	Handle       string  `gorm:"type:varchar(255);uniqueIndex;not null"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex;not null"`
	PhotoURL     *string `gorm:"type:text"`
	AuthProvider string  `gorm:"type:varchar(50);not null;default:'password'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// Record tracks an issued session cookie so expired ones can be pruned and
// all of an account's sessions dropped on sign-out.
type Record struct {
	common.BaseModel
	UID       string    `gorm:"type:varchar(128);index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

// TableName specifies the table name for the Record model.
func (Record) TableName() string {
	return "sessions"
}

// Models lists everything the session endpoint migrates.
func Models() []interface{} {
	return []interface{}{&Account{}, &Record{}}
}

// Issued is the result of a successful sign-in: the account and the cookie
// to hand back to the caller.
type Issued struct {
	Account   *Account
	Cookie    string
	ExpiresAt time.Time
}

// ToAccountResponse converts an Account model to its response DTO.
func ToAccountResponse(a *Account) *shared.AccountResponse {
	if a == nil {
		return nil
	}
	resp := &shared.AccountResponse{
		UID:          a.UID,
		Name:         a.Name,
		Handle:       a.Handle,
		Email:        a.Email,
		AuthProvider: a.AuthProvider,
		CreatedAt:    a.CreatedAt,
		LastLoginAt:  a.LastLoginAt,
	}
	if a.PhotoURL != nil {
		resp.PhotoURL = *a.PhotoURL
	}
	return resp
}
