package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/ReviewForge/internal/adapter/memstore"
	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

func TestAcquireCreatesFreshState(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	st, err := store.Acquire(ctx, "sess-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if st.SessionID != "sess-1" {
		t.Errorf("expected sess-1, got %q", st.SessionID)
	}
	if st.Stage(review.StageCode).RetryCount != 0 {
		t.Error("fresh state should have zero retries")
	}
}

func TestAcquire_Contention(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	if _, err := store.Acquire(ctx, "sess-1"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	_, err := store.Acquire(ctx, "sess-1")
	if !errors.Is(err, domain.ErrStateContention) {
		t.Fatalf("expected ErrStateContention, got: %v", err)
	}
}

func TestAcquire_IndependentSessions(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	if _, err := store.Acquire(ctx, "sess-1"); err != nil {
		t.Fatalf("acquire sess-1: %v", err)
	}
	if _, err := store.Acquire(ctx, "sess-2"); err != nil {
		t.Fatalf("locking one session must not block another: %v", err)
	}
}

func TestCommitPersistsAndUnlocks(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	st, err := store.Acquire(ctx, "sess-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	st.Stage(review.StageCode).RetryCount = 2

	if err := store.Commit(ctx, st); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stage(review.StageCode).RetryCount != 2 {
		t.Errorf("expected committed retry count 2, got %d", got.Stage(review.StageCode).RetryCount)
	}
	if got.Version != 1 {
		t.Errorf("expected version bump to 1, got %d", got.Version)
	}

	if _, err := store.Acquire(ctx, "sess-1"); err != nil {
		t.Fatalf("commit should release the lock: %v", err)
	}
}

func TestRelease_DiscardsMutations(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	st, err := store.Acquire(ctx, "sess-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	st.Stage(review.StageTest).RetryCount = 9

	if err := store.Release(ctx, "sess-1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stage(review.StageTest).RetryCount != 0 {
		t.Error("released mutations must not be visible")
	}
}

func TestCommitWithoutAcquireFails(t *testing.T) {
	store := memstore.New()
	st, _ := store.Acquire(context.Background(), "sess-1")
	_ = store.Release(context.Background(), "sess-1")
	if err := store.Commit(context.Background(), st); err == nil {
		t.Fatal("commit without holding the lock should fail")
	}
}

func TestGet_NotFound(t *testing.T) {
	store := memstore.New()
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestCleanup_RemovesIdleSessions(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	st, _ := store.Acquire(ctx, "old")
	_ = store.Commit(ctx, st)
	st2, _ := store.Acquire(ctx, "live")
	_ = store.Commit(ctx, st2)

	removed, err := store.Cleanup(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("cleaned session should be gone")
	}
}

func TestCleanup_SkipsLockedSessions(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	if _, err := store.Acquire(ctx, "busy"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	removed, err := store.Cleanup(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 0 {
		t.Errorf("locked session must survive cleanup, removed %d", removed)
	}
}

func TestList(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	for _, id := range []string{"b", "a"} {
		st, _ := store.Acquire(ctx, id)
		_ = store.Commit(ctx, st)
	}
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].SessionID != "a" || all[1].SessionID != "b" {
		t.Errorf("expected ordered sessions [a b], got %+v", all)
	}
}
