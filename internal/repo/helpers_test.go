package repo

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-relay/internal/domain"
)

// newRepoDB opens a temp-file SQLite database through OpenSQLite so tests get
// the same PRAGMAs (WAL, foreign keys, busy timeout) as production.
func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "repo_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func strp(s string) *string { return &s }

func seedUser(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()
	if err := db.Create(&domain.User{UserID: userID}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}
