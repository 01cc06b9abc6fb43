package limiters

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg LockoutConfig) (*LockoutLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLockoutLimiter(client, cfg), mr
}

func TestLockTriggersAtThreshold(t *testing.T) {
	limiter, _ := newTestLimiter(t, LockoutConfig{MaxAttempts: 3, Duration: 5 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		triggered, err := limiter.RecordFailure(ctx, "alice")
		if err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
		if triggered {
			t.Fatalf("lock triggered early at attempt %d", i+1)
		}

		locked, _, err := limiter.IsLocked(ctx, "alice")
		if err != nil {
			t.Fatalf("IsLocked error: %v", err)
		}
		if locked {
			t.Fatalf("locked early at attempt %d", i+1)
		}
	}

	triggered, err := limiter.RecordFailure(ctx, "alice")
	if err != nil {
		t.Fatalf("RecordFailure error: %v", err)
	}
	if !triggered {
		t.Fatal("expected third failure to trigger the lock")
	}

	locked, retryAfter, err := limiter.IsLocked(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLocked error: %v", err)
	}
	if !locked {
		t.Fatal("expected account to be locked")
	}
	if retryAfter <= 0 || retryAfter > 5*time.Minute {
		t.Fatalf("unexpected retry-after: %v", retryAfter)
	}
}

func TestLockExpiresAfterDuration(t *testing.T) {
	limiter, mr := newTestLimiter(t, LockoutConfig{MaxAttempts: 1, Duration: time.Minute})
	ctx := context.Background()

	if _, err := limiter.RecordFailure(ctx, "bob"); err != nil {
		t.Fatalf("RecordFailure error: %v", err)
	}

	locked, _, err := limiter.IsLocked(ctx, "bob")
	if err != nil || !locked {
		t.Fatalf("expected locked, got locked=%v err=%v", locked, err)
	}

	mr.FastForward(time.Minute + time.Second)

	locked, _, err = limiter.IsLocked(ctx, "bob")
	if err != nil {
		t.Fatalf("IsLocked error: %v", err)
	}
	if locked {
		t.Fatal("expected lock to expire with its TTL")
	}

	count, err := limiter.FailureCount(ctx, "bob")
	if err != nil {
		t.Fatalf("FailureCount error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter window to reset, got %d", count)
	}
}

func TestResetClearsCounterAndLock(t *testing.T) {
	limiter, _ := newTestLimiter(t, LockoutConfig{MaxAttempts: 2, Duration: time.Minute})
	ctx := context.Background()

	_, _ = limiter.RecordFailure(ctx, "carol")
	_, _ = limiter.RecordFailure(ctx, "carol")

	if err := limiter.Reset(ctx, "carol"); err != nil {
		t.Fatalf("Reset error: %v", err)
	}

	locked, _, err := limiter.IsLocked(ctx, "carol")
	if err != nil || locked {
		t.Fatalf("expected unlocked after reset, got locked=%v err=%v", locked, err)
	}
	count, err := limiter.FailureCount(ctx, "carol")
	if err != nil || count != 0 {
		t.Fatalf("expected zero count after reset, got %d err=%v", count, err)
	}
}

func TestConcurrentFailuresFireExactlyOneLockout(t *testing.T) {
	limiter, _ := newTestLimiter(t, LockoutConfig{MaxAttempts: 3, Duration: time.Minute})
	ctx := context.Background()

	const workers = 24

	var (
		wg        sync.WaitGroup
		triggered atomic.Int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fired, err := limiter.RecordFailure(ctx, "dave")
			if err != nil {
				t.Errorf("RecordFailure error: %v", err)
				return
			}
			if fired {
				triggered.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := triggered.Load(); got != 1 {
		t.Fatalf("expected exactly one lockout transition, got %d", got)
	}

	count, err := limiter.FailureCount(ctx, "dave")
	if err != nil {
		t.Fatalf("FailureCount error: %v", err)
	}
	if count != workers {
		t.Fatalf("expected %d counted failures, got %d", workers, count)
	}
}

func TestEmptyUsernameIsNoOp(t *testing.T) {
	limiter, _ := newTestLimiter(t, LockoutConfig{MaxAttempts: 1, Duration: time.Minute})
	ctx := context.Background()

	triggered, err := limiter.RecordFailure(ctx, "")
	if err != nil || triggered {
		t.Fatalf("expected no-op, got triggered=%v err=%v", triggered, err)
	}
	locked, _, err := limiter.IsLocked(ctx, "")
	if err != nil || locked {
		t.Fatalf("expected no-op, got locked=%v err=%v", locked, err)
	}
	if err := limiter.Reset(ctx, ""); err != nil {
		t.Fatalf("expected no-op reset, got %v", err)
	}
}
