package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-chat-relay/internal/domain"
)

// mergeableUserColumns are overwritten on conflict only when the incoming
// value is non-NULL.
var mergeableUserColumns = []string{
	"user_name",
	"user_email",
	"user_agent",
	"screen_resolution",
	"language",
	"platform",
}

// UpsertUser inserts the user or merges its non-nil fields into the existing
// row with a single INSERT ... ON CONFLICT statement, so concurrent first
// contacts for the same user_id never produce two rows. It returns the stored
// row after the merge.
func UpsertUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error) {
	if u == nil || strings.TrimSpace(u.UserID) == "" {
		return nil, fmt.Errorf("upsert user: empty user_id")
	}
	now := time.Now().UTC()
	rec := *u
	rec.ID = 0
	rec.CreatedAt = now
	rec.UpdatedAt = now

	set := make(clause.Set, 0, len(mergeableUserColumns)+1)
	for _, col := range mergeableUserColumns {
		set = append(set, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  coalesceIncoming(db, "users", col),
		})
	}
	set = append(set, clause.Assignment{Column: clause.Column{Name: "updated_at"}, Value: now})

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: set,
		}).
		Create(&rec).Error
	if err != nil {
		return nil, err
	}
	return GetUser(ctx, db, u.UserID)
}

// GetUser fetches a user by external id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, userID string) (*domain.User, error) {
	var out domain.User
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// coalesceIncoming builds "keep the incoming value unless it is NULL" for the
// active dialect. MySQL has no EXCLUDED pseudo-table.
func coalesceIncoming(db *gorm.DB, table, col string) clause.Expr {
	if db.Dialector.Name() == "mysql" {
		return gorm.Expr(fmt.Sprintf("COALESCE(VALUES(%s), %s)", col, col))
	}
	return gorm.Expr(fmt.Sprintf("COALESCE(excluded.%s, %s.%s)", col, table, col))
}
