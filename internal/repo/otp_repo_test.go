package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nkoutro/go-connect-backend/internal/domain"
)

func TestCreateOTP_InvalidatesPriorCode(t *testing.T) {
	db := newTestDB(t, &domain.EmailOTP{})
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := CreateOTP(ctx, db, "u1", "hash-1", "verify_email", time.Minute)
	if err != nil {
		t.Fatalf("first CreateOTP: %v", err)
	}
	second, err := CreateOTP(ctx, db, "u1", "hash-2", "verify_email", time.Minute)
	if err != nil {
		t.Fatalf("second CreateOTP: %v", err)
	}

	live, err := GetPendingOTP(ctx, db, "u1", "verify_email", now)
	if err != nil {
		t.Fatalf("GetPendingOTP: %v", err)
	}
	if live.ID != second.ID || live.CodeHash != "hash-2" {
		t.Fatalf("live code = %s, want the most recent %s", live.ID, second.ID)
	}

	var old domain.EmailOTP
	if err := db.First(&old, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("load first code: %v", err)
	}
	if !old.Used {
		t.Fatalf("prior code was not invalidated")
	}
}

func TestCreateOTP_PurposesAreIndependent(t *testing.T) {
	db := newTestDB(t, &domain.EmailOTP{})
	ctx := context.Background()
	now := time.Now().UTC()

	verify, err := CreateOTP(ctx, db, "u1", "hash-v", "verify_email", time.Minute)
	if err != nil {
		t.Fatalf("CreateOTP verify: %v", err)
	}
	if _, err := CreateOTP(ctx, db, "u1", "hash-r", "reset_password", time.Minute); err != nil {
		t.Fatalf("CreateOTP reset: %v", err)
	}

	live, err := GetPendingOTP(ctx, db, "u1", "verify_email", now)
	if err != nil {
		t.Fatalf("GetPendingOTP: %v", err)
	}
	if live.ID != verify.ID {
		t.Fatalf("reset code displaced the verify code")
	}
}

func TestGetPendingOTP_ExpiryAndMissing(t *testing.T) {
	db := newTestDB(t, &domain.EmailOTP{})
	ctx := context.Background()

	if _, err := GetPendingOTP(ctx, db, "u1", "verify_email", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("no code: expected ErrNotFound, got %v", err)
	}

	rec, err := CreateOTP(ctx, db, "u1", "hash-1", "verify_email", time.Minute)
	if err != nil {
		t.Fatalf("CreateOTP: %v", err)
	}
	if _, err := GetPendingOTP(ctx, db, "u1", "verify_email", rec.ExpiresAt.Add(time.Second)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired code: expected ErrNotFound, got %v", err)
	}
}

func TestConsumeOTP_SingleUse(t *testing.T) {
	db := newTestDB(t, &domain.EmailOTP{})
	ctx := context.Background()

	rec, err := CreateOTP(ctx, db, "u1", "hash-1", "verify_email", time.Minute)
	if err != nil {
		t.Fatalf("CreateOTP: %v", err)
	}
	if err := ConsumeOTP(ctx, db, rec.ID); err != nil {
		t.Fatalf("ConsumeOTP: %v", err)
	}
	if err := ConsumeOTP(ctx, db, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("replay: expected ErrNotFound, got %v", err)
	}
	if _, err := GetPendingOTP(ctx, db, "u1", "verify_email", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("consumed code still pending: %v", err)
	}
}
