package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestGetRecordKey(t *testing.T) {
	if got := getRecordKey("abc"); got != "crossplot:trigger:abc" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestRecordStorageUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	s := NewRecordStorage(client, time.Hour, zap.NewNop())
	ctx := context.Background()

	if err := s.Save(ctx, &domain.TriggerRecord{ID: "abc"}); err == nil {
		t.Fatal("expected save error")
	}
	_, err := s.Get(ctx, "abc")
	if err == nil {
		t.Fatal("expected get error")
	}
	if errors.Is(err, domain.ErrTriggerNotFound) {
		t.Fatal("connection failure must not look like a missing record")
	}
}

func newTestRecordStorage(t *testing.T, ttl time.Duration) (*RecordStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRecordStorage(client, ttl, zap.NewNop()), mr
}

func TestSaveGetRoundTrip(t *testing.T) {
	s, mr := newTestRecordStorage(t, time.Hour)
	ctx := context.Background()

	code := 0
	started := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := &domain.TriggerRecord{
		ID:        "abc",
		State:     domain.TriggerStateDone,
		Mode:      domain.TriggerModeStream,
		StartDate: "2023-01-01",
		StartedAt: started,
		UpdatedAt: started,
		ExitCode:  &code,
		Lines:     2,
		Uploads: []domain.Upload{
			{Bucket: "crossword", ObjectKey: "data.csv", Size: 42, At: started},
		},
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	if ttl := mr.TTL(getRecordKey("abc")); ttl != time.Hour {
		t.Fatalf("expected record TTL of 1h, got %s", ttl)
	}

	got, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != rec.State || got.Mode != rec.Mode || got.Lines != 2 || !got.StartedAt.Equal(started) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.ExitCode == nil || *got.ExitCode != 0 {
		t.Fatalf("unexpected exit code: %v", got.ExitCode)
	}
	if len(got.Uploads) != 1 || got.Uploads[0].ObjectKey != "data.csv" {
		t.Fatalf("unexpected uploads: %+v", got.Uploads)
	}
}

func TestGetMissingRecord(t *testing.T) {
	s, _ := newTestRecordStorage(t, time.Hour)

	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrTriggerNotFound) {
		t.Fatalf("expected ErrTriggerNotFound, got %v", err)
	}
}

func TestRecordExpires(t *testing.T) {
	s, mr := newTestRecordStorage(t, time.Minute)
	ctx := context.Background()

	if err := s.Save(ctx, &domain.TriggerRecord{ID: "abc", State: domain.TriggerStateDone}); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := s.Get(ctx, "abc"); !errors.Is(err, domain.ErrTriggerNotFound) {
		t.Fatalf("expected expired record to be gone, got %v", err)
	}
}

func TestSaveRefreshesTTL(t *testing.T) {
	s, mr := newTestRecordStorage(t, time.Minute)
	ctx := context.Background()
	rec := &domain.TriggerRecord{ID: "abc", State: domain.TriggerStateRefreshing}

	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(40 * time.Second)

	rec.State = domain.TriggerStateDone
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("second save: %v", err)
	}
	mr.FastForward(40 * time.Second)

	got, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("expected record to survive after a later save: %v", err)
	}
	if got.State != domain.TriggerStateDone {
		t.Fatalf("unexpected state: %s", got.State)
	}
}
