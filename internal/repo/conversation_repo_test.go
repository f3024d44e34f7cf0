package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/go-chat-relay/internal/domain"
)

func TestInsertConversation_PendingWithNullResponse(t *testing.T) {
	db := newRepoDB(t)
	seedUser(t, db, "u1")

	c, err := InsertConversation(context.Background(), db, "u1", "hola", datatypes.JSON(`{"datetime":1}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if c.ID == 0 || c.Response != nil || c.Status != domain.StatusPending {
		t.Fatalf("unexpected conversation: %+v", c)
	}
}

func TestInsertConversation_UnknownUserViolatesFK(t *testing.T) {
	db := newRepoDB(t)
	if _, err := InsertConversation(context.Background(), db, "ghost", "hola", nil); err == nil {
		t.Fatalf("expected foreign key error for unknown user")
	}
}

func TestResolveConversation_ExactlyOnce(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")
	c, err := InsertConversation(ctx, db, "u1", "question", nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	err = ResolveConversation(ctx, db, c.ID, domain.Resolution{
		Response: "42",
		Status:   domain.StatusAnswered,
		Source:   domain.SourceLLM,
		Metadata: datatypes.JSON(`{"provider":"fake"}`),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	got, err := GetConversation(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Response == nil || *got.Response != "42" || got.Status != domain.StatusAnswered || got.Source != domain.SourceLLM {
		t.Fatalf("unexpected resolved row: %+v", got)
	}

	// A second write is refused and leaves the first response intact.
	err = ResolveConversation(ctx, db, c.ID, domain.Resolution{Response: "other", Status: domain.StatusAnswered})
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	got, _ = GetConversation(ctx, db, c.ID)
	if *got.Response != "42" {
		t.Fatalf("response mutated twice: %q", *got.Response)
	}

	if err := ResolveConversation(ctx, db, 9999, domain.Resolution{Response: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestListConversationsByUser_NewestFirstWithLimit(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")

	var ids []uint
	for _, m := range []string{"one", "two", "three"} {
		c, err := InsertConversation(ctx, db, "u1", m, nil)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, c.ID)
	}
	if _, err := InsertConversation(ctx, db, "u2", "other user", nil); err != nil {
		t.Fatalf("insert: %v", err)
	}

	all, err := ListConversationsByUser(ctx, db, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Fatalf("expected newest first for u1, got %+v", all)
	}

	two, err := ListConversationsByUser(ctx, db, "u1", 2)
	if err != nil || len(two) != 2 || two[0].Message != "three" {
		t.Fatalf("limit not applied: %+v err=%v", two, err)
	}

	none, err := ListConversationsByUser(ctx, db, "nobody", 5)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty list, got %+v err=%v", none, err)
	}
}

func TestDeleteConversation(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")
	c, _ := InsertConversation(ctx, db, "u1", "bye", nil)

	ok, err := DeleteConversation(ctx, db, c.ID)
	if err != nil || !ok {
		t.Fatalf("expected delete=true, got %v err=%v", ok, err)
	}
	ok, err = DeleteConversation(ctx, db, c.ID)
	if err != nil || ok {
		t.Fatalf("expected delete=false on second call, got %v err=%v", ok, err)
	}
	if _, err := GetConversation(ctx, db, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFailStalePending_OnlyOldPendingRows(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	stale, _ := InsertConversation(ctx, db, "u1", "stale", nil)
	fresh, _ := InsertConversation(ctx, db, "u1", "fresh", nil)
	done, _ := InsertConversation(ctx, db, "u1", "done", nil)
	if err := ResolveConversation(ctx, db, done.ID, domain.Resolution{Response: "ok", Status: domain.StatusAnswered, Source: domain.SourceRule}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	old := time.Now().UTC().Add(-time.Hour)
	for _, id := range []uint{stale.ID, done.ID} {
		if err := db.Model(&domain.Conversation{}).Where("id = ?", id).Update("created_at", old).Error; err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}

	n, err := FailStalePending(ctx, db, time.Now().UTC().Add(-10*time.Minute), "fallback")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stale row, got %d", n)
	}

	got, _ := GetConversation(ctx, db, stale.ID)
	if got.Status != domain.StatusFailed || got.Response == nil || *got.Response != "fallback" || got.Source != domain.SourceFallback {
		t.Fatalf("stale row not failed: %+v", got)
	}
	got, _ = GetConversation(ctx, db, fresh.ID)
	if got.Status != domain.StatusPending || got.Response != nil {
		t.Fatalf("fresh row touched: %+v", got)
	}
	got, _ = GetConversation(ctx, db, done.ID)
	if *got.Response != "ok" {
		t.Fatalf("resolved row touched: %+v", got)
	}
}

func TestConversationStats_And_StatusCounts(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1")

	n, ts, err := ConversationStats(ctx, db, "u1")
	if err != nil || n != 0 || ts != nil {
		t.Fatalf("empty stats unexpected: n=%d ts=%v err=%v", n, ts, err)
	}

	a, _ := InsertConversation(ctx, db, "u1", "a", nil)
	_, _ = InsertConversation(ctx, db, "u1", "b", nil)
	_ = ResolveConversation(ctx, db, a.ID, domain.Resolution{Response: "x", Status: domain.StatusAnswered, Source: domain.SourceRule})

	n, ts, err = ConversationStats(ctx, db, "u1")
	if err != nil || n != 2 || ts == nil || ts.IsZero() {
		t.Fatalf("stats unexpected: n=%d ts=%v err=%v", n, ts, err)
	}

	counts, err := StatusCounts(ctx, db)
	if err != nil {
		t.Fatalf("status counts: %v", err)
	}
	if counts[domain.StatusAnswered] != 1 || counts[domain.StatusPending] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
