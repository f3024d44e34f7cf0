// Package domain defines the persistence models for users, conversations,
// and business rules. These types are mapped with GORM and form the core
// data layer of the relay.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Conversation lifecycle states.
const (
	StatusPending  = "pending"
	StatusAnswered = "answered"
	StatusFailed   = "failed"
)

// Where a conversation's response came from.
const (
	SourceRule     = "rule"
	SourceCache    = "cache"
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// User is the profile of a widget visitor, keyed by the client-supplied
// user_id. Every incoming message upserts it; nil fields on the incoming side
// never overwrite stored values.
//
// Fields:
//   - ID: surrogate auto-increment key.
//   - UserID: external identifier (unique).
//   - Name / Email: optional profile data.
//   - UserAgent / ScreenResolution / Language / Platform: browser fingerprint.
type User struct {
	ID               uint      `json:"-"                           gorm:"primaryKey;autoIncrement"`
	UserID           string    `json:"user_id"                     gorm:"size:255;not null;uniqueIndex:ux_users_user_id"`
	Name             *string   `json:"user_name,omitempty"         gorm:"column:user_name;size:255"`
	Email            *string   `json:"user_email,omitempty"        gorm:"column:user_email;size:255"`
	UserAgent        *string   `json:"user_agent,omitempty"        gorm:"size:512"`
	ScreenResolution *string   `json:"screen_resolution,omitempty" gorm:"size:50"`
	Language         *string   `json:"language,omitempty"          gorm:"size:10"`
	Platform         *string   `json:"platform,omitempty"          gorm:"size:50"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Conversations []Conversation `json:"-" gorm:"foreignKey:UserID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Conversation is one prompt/response exchange. It is created with a nil
// Response in the pending state and resolved exactly once.
//
// Metadata holds match details for auditing (strategy, keyword, score,
// provider, client datetime).
type Conversation struct {
	ID        uint           `json:"id"                 gorm:"primaryKey;autoIncrement"`
	UserID    string         `json:"user_id"            gorm:"size:255;not null;index:idx_user_conversations,priority:1"`
	Message   string         `json:"message"            gorm:"type:text;not null"`
	Response  *string        `json:"response"           gorm:"type:text"`
	Status    string         `json:"status"             gorm:"size:16;not null;default:pending;index"`
	Source    string         `json:"source,omitempty"   gorm:"size:16"`
	Metadata  datatypes.JSON `json:"metadata,omitempty" swaggertype:"object"`
	CreatedAt time.Time      `json:"created_at"         gorm:"index:idx_user_conversations,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// BusinessRule is one keyword → canned response row for the SQL rule source.
type BusinessRule struct {
	ID       uint   `json:"id"       gorm:"primaryKey;autoIncrement"`
	Keyword  string `json:"keyword"  gorm:"size:255;not null"`
	Response string `json:"response" gorm:"type:text;not null"`
}

// TableName returns the default rules table name.
func (BusinessRule) TableName() string { return "business_rules" }

// Resolution is the one-time outcome written onto a pending Conversation.
type Resolution struct {
	Response string
	Status   string
	Source   string
	Metadata datatypes.JSON
}
