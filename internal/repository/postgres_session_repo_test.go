package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/sitecms/internal/model"
)

func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

func TestPostgresSessionRepo_Lifecycle(t *testing.T) {
	db := setupRepoDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresSessionRepo(db)
	ctx := context.Background()

	u := newTestUser("s@x.com", model.ProviderGoogle, "g1")
	mustCreateUser(t, users, u)

	now := time.Now().UTC().Truncate(time.Microsecond)
	s := &model.Session{ID: "sess-1", UserID: u.ID, ExpiresAt: now.Add(time.Hour), LastSeenAt: now, CreatedAt: now}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.FindByID(ctx, "sess-1")
	if err != nil || got == nil {
		t.Fatalf("FindByID: session=%v err=%v", got, err)
	}
	if got.UserID != u.ID {
		t.Errorf("UserID = %q, want %q", got.UserID, u.ID)
	}

	later := now.Add(10 * time.Minute)
	if err := repo.Touch(ctx, "sess-1", later); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, _ = repo.FindByID(ctx, "sess-1")
	if !got.LastSeenAt.Equal(later) {
		t.Errorf("LastSeenAt = %v, want %v", got.LastSeenAt, later)
	}

	if err := repo.DeleteByID(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	got, err = repo.FindByID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got != nil {
		t.Error("deleted session should not be found")
	}
}

func TestPostgresSessionRepo_FindByID_Expired(t *testing.T) {
	db := setupRepoDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresSessionRepo(db)
	ctx := context.Background()

	u := newTestUser("e@x.com", model.ProviderGoogle, "g1")
	mustCreateUser(t, users, u)

	past := time.Now().Add(-2 * time.Hour)
	s := &model.Session{ID: "old", UserID: u.ID, ExpiresAt: past.Add(time.Hour), LastSeenAt: past, CreatedAt: past}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.FindByID(ctx, "old")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got != nil {
		t.Error("expired session should not be found")
	}
}

// ログアウト対象のセッションだけが削除され、同じユーザーの他のセッションは残る。
func TestPostgresSessionRepo_DeleteByID(t *testing.T) {
	db := setupRepoDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresSessionRepo(db)
	ctx := context.Background()

	u := newTestUser("d@x.com", model.ProviderGoogle, "g1")
	mustCreateUser(t, users, u)

	now := time.Now()
	for _, id := range []string{"a", "b"} {
		if err := repo.Create(ctx, &model.Session{ID: id, UserID: u.ID, ExpiresAt: now.Add(time.Hour), LastSeenAt: now, CreatedAt: now}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.DeleteByID(ctx, "a"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if got, _ := repo.FindByID(ctx, "a"); got != nil {
		t.Error("session a should be deleted")
	}
	if got, _ := repo.FindByID(ctx, "b"); got == nil {
		t.Error("session b should remain")
	}
	// 存在しないIDの削除はエラーにならない
	if err := repo.DeleteByID(ctx, "missing"); err != nil {
		t.Errorf("DeleteByID(missing): %v", err)
	}
}
