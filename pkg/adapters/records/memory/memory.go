package memory

import (
	"context"
	"sync"

	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/aescanero/crossplot/pkg/ports"
)

// InMemoryRecordStorage implements TriggerRecords using an in-memory map
type InMemoryRecordStorage struct {
	records map[string]*domain.TriggerRecord
	mu      sync.RWMutex
}

var _ ports.TriggerRecords = (*InMemoryRecordStorage)(nil)

// NewInMemoryRecordStorage creates a new in-memory record storage
func NewInMemoryRecordStorage() *InMemoryRecordStorage {
	return &InMemoryRecordStorage{
		records: make(map[string]*domain.TriggerRecord),
	}
}

// Save stores a copy of rec
func (s *InMemoryRecordStorage) Save(ctx context.Context, rec *domain.TriggerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = cloneRecord(rec)
	return nil
}

// Get returns a copy of the stored record
func (s *InMemoryRecordStorage) Get(ctx context.Context, id string) (*domain.TriggerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrTriggerNotFound
	}
	return cloneRecord(rec), nil
}

// cloneRecord copies rec so callers can keep mutating their own value
func cloneRecord(rec *domain.TriggerRecord) *domain.TriggerRecord {
	c := *rec
	if rec.Uploads != nil {
		c.Uploads = append([]domain.Upload(nil), rec.Uploads...)
	}
	if rec.CompletedAt != nil {
		t := *rec.CompletedAt
		c.CompletedAt = &t
	}
	if rec.ExitCode != nil {
		code := *rec.ExitCode
		c.ExitCode = &code
	}
	return &c
}
