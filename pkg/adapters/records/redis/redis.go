package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/aescanero/crossplot/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RecordStorage implements TriggerRecords using Redis
type RecordStorage struct {
	client redis.Cmdable
	logger *zap.Logger
	ttl    time.Duration
}

var _ ports.TriggerRecords = (*RecordStorage)(nil)

// NewRecordStorage creates a new Redis record storage
func NewRecordStorage(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RecordStorage {
	return &RecordStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Save persists a trigger record with the configured TTL
func (s *RecordStorage) Save(ctx context.Context, rec *domain.TriggerRecord) error {
	key := getRecordKey(rec.ID)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	s.logger.Debug("record saved",
		zap.String("trigger_id", rec.ID),
		zap.String("state", string(rec.State)))

	return nil
}

// Get retrieves a trigger record
func (s *RecordStorage) Get(ctx context.Context, id string) (*domain.TriggerRecord, error) {
	data, err := s.client.Get(ctx, getRecordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrTriggerNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var rec domain.TriggerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &rec, nil
}

// getRecordKey returns the Redis key for a trigger record
func getRecordKey(id string) string {
	return fmt.Sprintf("crossplot:trigger:%s", id)
}
