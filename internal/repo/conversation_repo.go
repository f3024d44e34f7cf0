// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for conversations:
// the pending insert, the exactly-once response update, history listing,
// deletion, and stale-pending recovery.
//
// Usage example:
//
//	conv, err := repo.InsertConversation(ctx, db, "user-123", "hola", nil)
//	if err != nil { ... }
//	err = repo.ResolveConversation(ctx, db, conv.ID, domain.Resolution{
//		Response: "¡Hola!", Status: domain.StatusAnswered, Source: domain.SourceRule,
//	})
//	if errors.Is(err, repo.ErrAlreadyResolved) { ... }
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-relay/internal/domain"
)

// InsertConversation creates a pending conversation with a NULL response.
func InsertConversation(ctx context.Context, db *gorm.DB, userID, message string, meta datatypes.JSON) (*domain.Conversation, error) {
	c := &domain.Conversation{
		UserID:   userID,
		Message:  message,
		Status:   domain.StatusPending,
		Metadata: meta,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ResolveConversation writes the response for a pending conversation. The
// update is guarded by "response IS NULL", so it succeeds at most once:
// later calls return ErrAlreadyResolved, unknown ids return ErrNotFound.
func ResolveConversation(ctx context.Context, db *gorm.DB, id uint, r domain.Resolution) error {
	updates := map[string]any{
		"response":   r.Response,
		"status":     r.Status,
		"source":     r.Source,
		"updated_at": time.Now().UTC(),
	}
	if len(r.Metadata) > 0 {
		updates["metadata"] = r.Metadata
	}

	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ? AND response IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var n int64
	if err := db.WithContext(ctx).Model(&domain.Conversation{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrAlreadyResolved
}

// GetConversation returns a conversation by id, or ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id uint) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversationsByUser returns up to limit conversations for a user,
// newest first. A non-positive limit returns everything.
func ListConversationsByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteConversation hard-deletes a conversation and reports whether a row
// was removed.
func DeleteConversation(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	res := db.WithContext(ctx).Delete(&domain.Conversation{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FailStalePending resolves conversations still pending since before cutoff
// with the fallback text. It recovers rows orphaned by a crash between insert
// and resolve.
func FailStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time, fallback string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("response IS NULL AND status = ? AND created_at < ?", domain.StatusPending, cutoff).
		Updates(map[string]any{
			"response":   fallback,
			"status":     domain.StatusFailed,
			"source":     domain.SourceFallback,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
