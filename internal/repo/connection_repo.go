// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Connection
// model: pair-scoped lookups, most-recent-row selection, and the listing
// queries consumed by the HTTP layer.
//
// Pair addressing: every query is scoped by the canonical (pair_low,
// pair_high) key, so A→B and B→A resolve to the same rows. Where multiple
// historical rows exist for a pair, the authoritative one is the most
// recently updated (ORDER BY updated_at DESC).
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nkoutro/go-connect-backend/internal/domain"
)

// ErrDuplicate indicates a unique-constraint violation, e.g. a second active
// row for the same pair or a reused idempotency key.
var ErrDuplicate = errors.New("duplicate")

// pairScope narrows a query to the unordered pair (a, b).
func pairScope(db *gorm.DB, a, b string) *gorm.DB {
	low, high := domain.PairKey(a, b)
	return db.Where("pair_low = ? AND pair_high = ?", low, high)
}

// CreateConnection inserts a new active connection row. The partial unique
// index on the pair key turns a racing double-create into ErrDuplicate for
// the loser.
func CreateConnection(ctx context.Context, db *gorm.DB, initiatingID, connectedID string, spent int, message *string) (*domain.Connection, error) {
	c := &domain.Connection{
		ID:               uuid.NewString(),
		InitiatingUserID: initiatingID,
		ConnectedUserID:  connectedID,
		ConnectSpent:     spent,
		Message:          message,
		CreatedAt:        time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// GetActivePair returns the pair's active (removed = false) row, or
// ErrNotFound. Mutating callers run inside a transaction; SQLite's
// single-writer locking makes an explicit row lock unnecessary.
func GetActivePair(ctx context.Context, db *gorm.DB, a, b string) (*domain.Connection, error) {
	var c domain.Connection
	err := pairScope(db.WithContext(ctx), a, b).
		Where("removed = ?", false).
		Order("updated_at desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetLatestRemovedPair returns the most recently updated removed row for the
// pair, or ErrNotFound.
func GetLatestRemovedPair(ctx context.Context, db *gorm.DB, a, b string) (*domain.Connection, error) {
	var c domain.Connection
	err := pairScope(db.WithContext(ctx), a, b).
		Where("removed = ?", true).
		Order("updated_at desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetPendingRequest returns the pair's row holding an open reconnection
// request issued by requestedBy that has not been rejected, or ErrNotFound.
func GetPendingRequest(ctx context.Context, db *gorm.DB, a, b, requestedBy string) (*domain.Connection, error) {
	var c domain.Connection
	err := pairScope(db.WithContext(ctx), a, b).
		Where("removed = ?", true).
		Where("reconnection_requested = ?", true).
		Where("reconnection_requested_by = ?", requestedBy).
		Where("reconnection_rejected = ?", false).
		Order("updated_at desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConnection returns the row with the given id, or ErrNotFound. Used by
// the idempotency replay path to re-serve a previously stored result.
func GetConnection(ctx context.Context, db *gorm.DB, id string) (*domain.Connection, error) {
	var c domain.Connection
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetPair returns the most recent row for the pair regardless of state, or
// ErrNotFound if the pair has no history.
func GetPair(ctx context.Context, db *gorm.DB, a, b string) (*domain.Connection, error) {
	var c domain.Connection
	err := pairScope(db.WithContext(ctx), a, b).
		Order("updated_at desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListPairHistory returns every row ever recorded for the pair, most recent
// first.
func ListPairHistory(ctx context.Context, db *gorm.DB, a, b string) ([]domain.Connection, error) {
	var out []domain.Connection
	err := pairScope(db.WithContext(ctx), a, b).
		Order("reconnection_count desc").
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}

// UpdateConnection persists the mutated row, refreshing UpdatedAt so the
// most-recent selection stays correct.
func UpdateConnection(ctx context.Context, db *gorm.DB, c *domain.Connection) error {
	c.UpdatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Save(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CountConnections returns the total number of connection rows involving
// userID (any state).
func CountConnections(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Connection{}).
		Where("initiating_user_id = ? OR connected_user_id = ?", userID, userID).
		Count(&total).Error
	return total, err
}

// ListConnectionsPage returns a page of userID's connection rows ordered by
// recency. Use CountConnections for pagination metadata.
func ListConnectionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Connection, error) {
	var out []domain.Connection
	err := db.WithContext(ctx).
		Where("initiating_user_id = ? OR connected_user_id = ?", userID, userID).
		Order("updated_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListIncomingRequests returns the rows carrying an open reconnection request
// addressed to userID (requested by the other member of the pair).
func ListIncomingRequests(ctx context.Context, db *gorm.DB, userID string) ([]domain.Connection, error) {
	var out []domain.Connection
	err := db.WithContext(ctx).
		Where("initiating_user_id = ? OR connected_user_id = ?", userID, userID).
		Where("removed = ?", true).
		Where("reconnection_requested = ?", true).
		Where("reconnection_rejected = ?", false).
		Where("reconnection_requested_by <> ?", userID).
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}

// CountActiveForPair reports how many active rows exist for the pair. Used
// by invariant checks in tests; production paths rely on the unique index.
func CountActiveForPair(ctx context.Context, db *gorm.DB, a, b string) (int64, error) {
	var n int64
	err := pairScope(db.WithContext(ctx).Model(&domain.Connection{}), a, b).
		Where("removed = ?", false).
		Count(&n).Error
	return n, err
}
