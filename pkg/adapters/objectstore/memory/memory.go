package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/aescanero/crossplot/pkg/ports"
)

// Call records one storage operation
type Call struct {
	Op          string
	Bucket      string
	ObjectKey   string
	ContentType string
}

// Object is a stored object
type Object struct {
	Data        []byte
	ContentType string
}

// InMemoryStorage implements ObjectStorage using in-memory maps
// This is for testing purposes only
type InMemoryStorage struct {
	buckets map[string]map[string]Object
	calls   []Call
	mu      sync.RWMutex

	// Fail, when set, is returned by every operation whose name it maps
	Fail map[string]error
}

var _ ports.ObjectStorage = (*InMemoryStorage)(nil)

// NewInMemoryStorage creates a new in-memory object storage
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		buckets: make(map[string]map[string]Object),
		Fail:    make(map[string]error),
	}
}

// BucketExists reports whether bucket exists
func (s *InMemoryStorage) BucketExists(ctx context.Context, bucket string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Op: "BucketExists", Bucket: bucket})
	if err := s.Fail["BucketExists"]; err != nil {
		return false, err
	}
	_, ok := s.buckets[bucket]
	return ok, nil
}

// MakeBucket creates bucket, failing if it already exists
func (s *InMemoryStorage) MakeBucket(ctx context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Op: "MakeBucket", Bucket: bucket})
	if err := s.Fail["MakeBucket"]; err != nil {
		return err
	}
	if _, ok := s.buckets[bucket]; ok {
		return fmt.Errorf("bucket already exists: %s", bucket)
	}
	s.buckets[bucket] = make(map[string]Object)
	return nil
}

// PutFile copies localPath into bucket under objectKey
func (s *InMemoryStorage) PutFile(ctx context.Context, bucket, objectKey, localPath, contentType string) (int64, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Op: "PutFile", Bucket: bucket, ObjectKey: objectKey, ContentType: contentType})
	if err := s.Fail["PutFile"]; err != nil {
		return 0, err
	}
	objects, ok := s.buckets[bucket]
	if !ok {
		return 0, fmt.Errorf("bucket not found: %s", bucket)
	}
	objects[objectKey] = Object{Data: data, ContentType: contentType}
	return int64(len(data)), nil
}

// Calls returns a copy of the recorded operations
func (s *InMemoryStorage) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Uploads returns only the recorded PutFile operations
func (s *InMemoryStorage) Uploads() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == "PutFile" {
			out = append(out, c)
		}
	}
	return out
}

// Object returns a stored object
func (s *InMemoryStorage) Object(bucket, objectKey string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.buckets[bucket][objectKey]
	return obj, ok
}
