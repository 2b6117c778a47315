// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model,
// including the ledger operations (connects balance, connections counter)
// that the connection state machine calls inside its transactions.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nkoutro/go-connect-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a new user row. Uniqueness of username and email is
// enforced by the schema; violations surface as ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	u.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUser fetches a user by id, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserForUpdate fetches a user by id for mutation inside a transaction.
// SQLite holds a single database-level write lock per transaction (and does
// not parse FOR UPDATE), so no locking clause is emitted; callers still read
// the two members of a pair in canonical order so the access pattern stays
// deadlock-free on engines with row locks.
func GetUserForUpdate(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername fetches a user by username, or ErrNotFound if missing.
func GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a user by email, or ErrNotFound if missing.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// DebitConnects subtracts amount from the user's connects balance. The guard
// in the WHERE clause keeps the balance non-negative even if the caller's
// sufficiency check raced; zero rows affected is reported as ErrNotFound so
// the surrounding transaction rolls back.
func DebitConnects(ctx context.Context, db *gorm.DB, id string, amount int) error {
	if amount == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND connects >= ?", id, amount).
		Update("connects", gorm.Expr("connects - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreditConnects adds amount to the user's connects balance.
func CreditConnects(ctx context.Context, db *gorm.DB, id string, amount int) error {
	if amount == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("connects", gorm.Expr("connects + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementConnectionCount bumps the user's connections counter by one.
// Called only on first-time connection creation; the counter is never
// decremented on removal.
func IncrementConnectionCount(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("connections", gorm.Expr("connections + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUser persists mutated profile/credential fields of u.
func UpdateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Save(u).Error
}

// CountUsers returns the number of users matching the optional search term
// (LIKE over username and name), excluding excludeID.
func CountUsers(ctx context.Context, db *gorm.DB, search, excludeID string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.User{}).Where("id <> ?", excludeID)
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + s + "%"
		q = q.Where("username LIKE ? OR name LIKE ?", like, like)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListUsersPage returns a page of users matching the optional search term,
// excluding excludeID, ranked by connections descending then recency.
func ListUsersPage(ctx context.Context, db *gorm.DB, search, excludeID string, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	q := db.WithContext(ctx).Where("id <> ?", excludeID)
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + s + "%"
		q = q.Where("username LIKE ? OR name LIKE ?", like, like)
	}
	err := q.Order("connections desc").
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// isUniqueViolation detects unique-constraint failures across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
