package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-relay/internal/domain"
	"github.com/tbourn/go-chat-relay/internal/repo"
)

// repoStore proxies the repo functions, as the router does in production.
type repoStore struct{}

func (repoStore) UpsertUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error) {
	return repo.UpsertUser(ctx, db, u)
}
func (repoStore) InsertConversation(ctx context.Context, db *gorm.DB, userID, message string, meta datatypes.JSON) (*domain.Conversation, error) {
	return repo.InsertConversation(ctx, db, userID, message, meta)
}
func (repoStore) ResolveConversation(ctx context.Context, db *gorm.DB, id uint, r domain.Resolution) error {
	return repo.ResolveConversation(ctx, db, id, r)
}
func (repoStore) GetConversation(ctx context.Context, db *gorm.DB, id uint) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id)
}
func (repoStore) ListConversationsByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Conversation, error) {
	return repo.ListConversationsByUser(ctx, db, userID, limit)
}
func (repoStore) DeleteConversation(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	return repo.DeleteConversation(ctx, db, id)
}
func (repoStore) GetIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, userID, key, now)
}
func (repoStore) CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key string, conversationID uint, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, userID, key, conversationID, status, ttl)
}

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fakeLLM is a streaming-capable model double.
type fakeLLM struct {
	mu          sync.Mutex
	reply       string
	err         error
	delay       time.Duration
	calls       int
	streamCalls int
	chunkSize   int
}

func (f *fakeLLM) Provider() string { return "fake" }

func (f *fakeLLM) Send(ctx context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.wait(ctx)
}

func (f *fakeLLM) SendStreaming(ctx context.Context, _ string, chunkSize int) (string, error) {
	f.mu.Lock()
	f.streamCalls++
	f.chunkSize = chunkSize
	f.mu.Unlock()
	return f.wait(ctx)
}

func (f *fakeLLM) wait(ctx context.Context) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeLLM) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls + f.streamCalls
}

// sendOnlyLLM does not implement llm.StreamingClient.
type sendOnlyLLM struct{ reply string }

func (s sendOnlyLLM) Provider() string                              { return "plain" }
func (s sendOnlyLLM) Send(context.Context, string) (string, error) { return s.reply, nil }

func strp(s string) *string { return &s }
