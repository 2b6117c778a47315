// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for EmailOTP rows
// backing email verification and password-reset flows.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nkoutro/go-connect-backend/internal/domain"
)

// CreateOTP stores a hashed one-time code for the user. Any earlier unused
// code for the same purpose is invalidated first, so only the most recently
// issued code can succeed.
func CreateOTP(ctx context.Context, db *gorm.DB, userID, codeHash, purpose string, ttl time.Duration) (*domain.EmailOTP, error) {
	now := time.Now().UTC()
	err := db.WithContext(ctx).
		Model(&domain.EmailOTP{}).
		Where("user_id = ? AND purpose = ? AND used = ?", userID, purpose, false).
		Update("used", true).Error
	if err != nil {
		return nil, err
	}
	rec := &domain.EmailOTP{
		ID:        uuid.NewString(),
		UserID:    userID,
		CodeHash:  codeHash,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// GetPendingOTP returns the user's live (unused, unexpired) code for the
// purpose, or ErrNotFound.
func GetPendingOTP(ctx context.Context, db *gorm.DB, userID, purpose string, now time.Time) (*domain.EmailOTP, error) {
	var rec domain.EmailOTP
	err := db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND used = ? AND expires_at > ?", userID, purpose, false, now).
		Order("created_at desc").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ConsumeOTP marks the code used. Zero rows affected maps to ErrNotFound.
func ConsumeOTP(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.EmailOTP{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
