package domain

import "time"

// Idempotency records which conversation answered a (user_id, key) pair so a
// retried POST returns the committed reply instead of calling the model again.
type Idempotency struct {
	ID             string    `gorm:"size:36;not null;primaryKey"`
	UserID         string    `gorm:"size:255;not null;uniqueIndex:ux_user_key,priority:1"`
	Key            string    `gorm:"column:idem_key;size:200;not null;uniqueIndex:ux_user_key,priority:2"`
	ConversationID uint      `gorm:"not null"`
	Status         int       `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt      time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
