package repo

import (
	"path/filepath"
	"testing"

	"github.com/nkoutro/go-connect-backend/internal/domain"
)

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	if _, err := OpenSQLite(filepath.Join(t.TempDir(), "nope", "app.db")); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestOpenSQLite_CreatesFileAndAppliesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	var mode string
	if err := db.Raw("PRAGMA journal_mode;").Scan(&mode).Error; err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
	var fk int
	if err := db.Raw("PRAGMA foreign_keys;").Scan(&fk).Error; err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}
}

func TestAutoMigrate_CreatesTablesAndPairIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	// Second run is a no-op.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("repeat AutoMigrate: %v", err)
	}

	for _, table := range []string{"users", "connections", "email_otps", "idempotency"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("table %q missing", table)
		}
	}

	var n int64
	err = db.Raw(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'ux_conn_pair_active'",
	).Scan(&n).Error
	if err != nil || n != 1 {
		t.Fatalf("partial pair index missing: n=%d err=%v", n, err)
	}

	// The index only constrains live rows: two removed rows per pair are fine,
	// a second active row is not.
	mk := func(id string, removed bool) *domain.Connection {
		return &domain.Connection{
			ID:               id,
			InitiatingUserID: "a-user",
			ConnectedUserID:  "b-user",
			Removed:          removed,
		}
	}
	if err := db.Create(mk("c1", true)).Error; err != nil {
		t.Fatalf("first removed row: %v", err)
	}
	if err := db.Create(mk("c2", true)).Error; err != nil {
		t.Fatalf("second removed row: %v", err)
	}
	if err := db.Create(mk("c3", false)).Error; err != nil {
		t.Fatalf("active row: %v", err)
	}
	if err := db.Create(mk("c4", false)).Error; !isUniqueViolation(err) {
		t.Fatalf("second active row: expected unique violation, got %v", err)
	}
}
