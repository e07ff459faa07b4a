package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestGetLockKey(t *testing.T) {
	if got := getLockKey("/work/data.csv"); got != "crossplot:lock:/work/data.csv" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestAcquireReportsUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewLocker(client, time.Minute, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := l.Acquire(ctx, "data.csv"); err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}

func newTestLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, ttl, 5*time.Millisecond, zap.NewNop()), mr
}

func TestAcquireBlocksUntilReleased(t *testing.T) {
	l, _ := newTestLocker(t, time.Minute)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "data.csv")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		second, err := l.Acquire(waitCtx, "data.csv")
		if err == nil {
			err = second(ctx)
		}
		acquired <- err
	}()

	select {
	case err := <-acquired:
		t.Fatalf("second acquire returned while the lock was held: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("second acquire: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestReleaseKeepsLockTakenOverAfterExpiry(t *testing.T) {
	l, mr := newTestLocker(t, time.Second)
	ctx := context.Background()

	staleRelease, err := l.Acquire(ctx, "data.csv")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	mr.FastForward(2 * time.Second)

	freshRelease, err := l.Acquire(ctx, "data.csv")
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	owner, err := mr.Get(getLockKey("data.csv"))
	if err != nil {
		t.Fatalf("read lock: %v", err)
	}

	if err := staleRelease(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	got, err := mr.Get(getLockKey("data.csv"))
	if err != nil || got != owner {
		t.Fatalf("stale release removed the new holder's lock: %q, %v", got, err)
	}

	if err := freshRelease(ctx); err != nil {
		t.Fatalf("fresh release: %v", err)
	}
	if mr.Exists(getLockKey("data.csv")) {
		t.Fatal("expected lock to be removed by its holder")
	}
}

func TestAcquireHonoursContextWhilePolling(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)
	if err := mr.Set(getLockKey("data.csv"), "someone-else"); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := l.Acquire(ctx, "data.csv")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestAcquireSetsLeaseTTL(t *testing.T) {
	l, mr := newTestLocker(t, 30*time.Second)

	if _, err := l.Acquire(context.Background(), "data.csv"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ttl := mr.TTL(getLockKey("data.csv")); ttl != 30*time.Second {
		t.Fatalf("expected 30s lease, got %s", ttl)
	}
}
