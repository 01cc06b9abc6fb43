package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, timeout time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, timeout), mr
}

func saveSession(t *testing.T, store *Store, sess *Session) {
	t.Helper()
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestTouchRefreshesActiveSession(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	now := time.Now().Unix()
	saveSession(t, store, &Session{
		Token:        "tok-1",
		Username:     "alice",
		Role:         "manager",
		CreatedAt:    now - 600,
		LastActivity: now - 600,
	})

	got, err := store.Touch(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if got.Username != "alice" || got.Role != "manager" {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.CreatedAt != now-600 {
		t.Fatalf("CreatedAt rewritten: got %d want %d", got.CreatedAt, now-600)
	}
	if got.LastActivity < now {
		t.Fatalf("LastActivity not refreshed: got %d, saved %d", got.LastActivity, now-600)
	}
}

func TestTouchUnknownToken(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	if _, err := store.Touch(context.Background(), "no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTouchWindowBoundary(t *testing.T) {
	const timeout = time.Hour
	store, _ := newTestStore(t, timeout)
	ctx := context.Background()
	now := time.Now().Unix()

	// One second inside the window: still active.
	saveSession(t, store, &Session{
		Token:        "tok-inside",
		Username:     "alice",
		Role:         "viewer",
		CreatedAt:    now - 3599,
		LastActivity: now - 3599,
	})
	if _, err := store.Touch(ctx, "tok-inside"); err != nil {
		t.Fatalf("Touch inside window: %v", err)
	}

	// One second past the window: expired, and the record is gone so a
	// second touch reports not found.
	saveSession(t, store, &Session{
		Token:        "tok-outside",
		Username:     "alice",
		Role:         "viewer",
		CreatedAt:    now - 3601,
		LastActivity: now - 3601,
	})
	expired, err := store.Touch(ctx, "tok-outside")
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	// Expiry surfaces the owner for attribution even though the record
	// was just deleted.
	if expired == nil || expired.Username != "alice" {
		t.Fatalf("expired session not attributed: %+v", expired)
	}
	if _, err := store.Touch(ctx, "tok-outside"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry cleanup, got %v", err)
	}
}

func TestTouchSlidesWindow(t *testing.T) {
	const timeout = time.Hour
	store, _ := newTestStore(t, timeout)
	ctx := context.Background()
	now := time.Now().Unix()

	// Nearly expired; a successful touch must make it good for a full
	// window again.
	saveSession(t, store, &Session{
		Token:        "tok-slide",
		Username:     "alice",
		Role:         "viewer",
		CreatedAt:    now - 3590,
		LastActivity: now - 3590,
	})

	first, err := store.Touch(ctx, "tok-slide")
	if err != nil {
		t.Fatalf("first Touch: %v", err)
	}
	second, err := store.Touch(ctx, "tok-slide")
	if err != nil {
		t.Fatalf("second Touch: %v", err)
	}
	if second.LastActivity < first.LastActivity {
		t.Fatalf("window did not slide: %d then %d", first.LastActivity, second.LastActivity)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	now := time.Now().Unix()

	saveSession(t, store, &Session{
		Token:        "tok-del",
		Username:     "alice",
		Role:         "viewer",
		CreatedAt:    now,
		LastActivity: now,
	})

	if err := store.Delete(ctx, "tok-del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Touch(ctx, "tok-del"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "tok-del"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete of unknown token: %v", err)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	now := time.Now().Unix()

	for _, token := range []string{"tok-a", "tok-b", "tok-c"} {
		saveSession(t, store, &Session{
			Token:        token,
			Username:     "alice",
			Role:         "viewer",
			CreatedAt:    now,
			LastActivity: now,
		})
	}
	saveSession(t, store, &Session{
		Token:        "tok-bob",
		Username:     "bob",
		Role:         "admin",
		CreatedAt:    now,
		LastActivity: now,
	})

	removed, err := store.DeleteAllForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}

	for _, token := range []string{"tok-a", "tok-b", "tok-c"} {
		if _, err := store.Touch(ctx, token); !errors.Is(err, ErrNotFound) {
			t.Fatalf("token %s survived bulk revocation: %v", token, err)
		}
	}
	if _, err := store.Touch(ctx, "tok-bob"); err != nil {
		t.Fatalf("unrelated user's session was revoked: %v", err)
	}

	count, err := store.ActiveSessionCount(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveSessionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("index not cleared: %d tokens remain", count)
	}
}

func TestExpiryRemovesTokenFromUserIndex(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	now := time.Now().Unix()

	saveSession(t, store, &Session{
		Token:        "tok-old",
		Username:     "alice",
		Role:         "viewer",
		CreatedAt:    now - 7200,
		LastActivity: now - 7200,
	})

	if _, err := store.Touch(ctx, "tok-old"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	count, err := store.ActiveSessionCount(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveSessionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expired token left in user index: count %d", count)
	}
}

func TestPhysicalTTLOutlivesWindow(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()
	now := time.Now().Unix()

	saveSession(t, store, &Session{
		Token:        "tok-ttl",
		Username:     "alice",
		Role:         "viewer",
		CreatedAt:    now,
		LastActivity: now,
	})

	ttl := mr.TTL(store.key("tok-ttl"))
	if ttl < time.Hour {
		t.Fatalf("physical TTL %v shorter than inactivity window", ttl)
	}

	// After the key physically expires, distinguish nothing: not found.
	mr.FastForward(3 * time.Hour)
	if _, err := store.Touch(ctx, "tok-ttl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after physical expiry, got %v", err)
	}
}
