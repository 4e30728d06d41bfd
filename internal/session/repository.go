// File: internal/session/repository.go
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"prepwise_auth/internal/common"

	"gorm.io/gorm"
)

// Repository defines the data operations behind the session endpoint.
type Repository interface {
	CreateAccount(ctx context.Context, account *Account) error
	UpdateAccount(ctx context.Context, account *Account) error
	FindAccountByUID(ctx context.Context, uid string) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	HandleExists(ctx context.Context, handle string) (bool, error)

	CreateRecord(ctx context.Context, record *Record) error
	DeleteRecordsForUID(ctx context.Context, uid string) (int64, error)
	DeleteExpiredRecords(ctx context.Context, now time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM session repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// CreateAccount inserts a new account.
func (r *gormRepository) CreateAccount(ctx context.Context, account *Account) error {
	account.Email = normalizeEmail(account.Email)
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithDetails(MsgAccountExists)
		}
		return err
	}
	return nil
}

// UpdateAccount saves all fields of an existing account.
func (r *gormRepository) UpdateAccount(ctx context.Context, account *Account) error {
	account.Email = normalizeEmail(account.Email)
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithDetails("Update failed: email already taken.")
		}
		return err
	}
	return nil
}

// FindAccountByUID retrieves an account by its identity provider UID.
func (r *gormRepository) FindAccountByUID(ctx context.Context, uid string) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails(MsgAccountMissing)
		}
		return nil, err
	}
	return &account, nil
}

// FindAccountByEmail retrieves an account by email address.
func (r *gormRepository) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails(MsgAccountMissing)
		}
		return nil, err
	}
	return &account, nil
}

// HandleExists reports whether handle is already taken.
func (r *gormRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Account{}).Where("handle = ?", handle).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateRecord stores an issued session.
func (r *gormRepository) CreateRecord(ctx context.Context, record *Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// DeleteRecordsForUID drops every session belonging to uid.
func (r *gormRepository) DeleteRecordsForUID(ctx context.Context, uid string) (int64, error) {
	result := r.db.WithContext(ctx).Where("uid = ?", uid).Delete(&Record{})
	return result.RowsAffected, result.Error
}

// DeleteExpiredRecords drops sessions that expired before now.
func (r *gormRepository) DeleteExpiredRecords(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&Record{})
	return result.RowsAffected, result.Error
}
