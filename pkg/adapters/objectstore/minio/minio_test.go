package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakeS3 answers the handful of S3 calls the adapter makes
type fakeS3 struct {
	mu          sync.Mutex
	makeBucket  func(w http.ResponseWriter)
	requests    []string
	putBodies   map[string]string
	contentType map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	// path-style: "/bucket/" for bucket calls, "/bucket/key" for objects
	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
	switch {
	case r.Method == http.MethodPut && len(parts) == 1:
		f.makeBucket(w)
	case r.Method == http.MethodPut && len(parts) == 2:
		body, _ := io.ReadAll(r.Body)
		f.putBodies[parts[1]] = string(body)
		f.contentType[parts[1]] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func s3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message><BucketName>crossword</BucketName><RequestId>1</RequestId></Error>`, code, code)
}

func newTestStorage(t *testing.T, f *fakeS3) *Storage {
	t.Helper()
	if f.putBodies == nil {
		f.putBodies = make(map[string]string)
	}
	if f.contentType == nil {
		f.contentType = make(map[string]string)
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	s, err := NewStorage(&Config{
		Endpoint:  u.Host,
		AccessKey: "minio",
		SecretKey: "minio123",
		Region:    "us-east-1",
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	return s
}

func TestMakeBucketToleratesOwnedBucket(t *testing.T) {
	f := &fakeS3{makeBucket: func(w http.ResponseWriter) {
		s3Error(w, http.StatusConflict, "BucketAlreadyOwnedByYou")
	}}
	s := newTestStorage(t, f)

	if err := s.MakeBucket(context.Background(), "crossword"); err != nil {
		t.Fatalf("expected owned bucket to be tolerated, got %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) != 1 || f.requests[0] != "PUT /crossword/" {
		t.Fatalf("expected a single bucket PUT, got %v", f.requests)
	}
	if len(f.putBodies) != 0 {
		t.Fatalf("bucket creation must not be routed as an object upload: %v", f.putBodies)
	}
}

func TestMakeBucketPropagatesOtherErrors(t *testing.T) {
	f := &fakeS3{makeBucket: func(w http.ResponseWriter) {
		s3Error(w, http.StatusConflict, "BucketAlreadyExists")
	}}
	s := newTestStorage(t, f)

	err := s.MakeBucket(context.Background(), "crossword")
	if err == nil {
		t.Fatal("expected error for bucket owned by someone else")
	}
	if !strings.Contains(err.Error(), "BucketAlreadyExists") {
		t.Fatalf("expected the S3 error code to reach the caller, got %v", err)
	}
}

func TestPutFileUploadsContent(t *testing.T) {
	f := &fakeS3{makeBucket: func(w http.ResponseWriter) { w.WriteHeader(http.StatusOK) }}
	s := newTestStorage(t, f)

	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("date,solve_time_secs\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	size, err := s.PutFile(context.Background(), "crossword", "data.csv", path, "text/csv")
	if err != nil {
		t.Fatalf("put file: %v", err)
	}
	if size != int64(len("date,solve_time_secs\n")) {
		t.Fatalf("unexpected size: %d", size)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contentType["data.csv"] != "text/csv" {
		t.Fatalf("unexpected content type: %q", f.contentType["data.csv"])
	}
	if !strings.Contains(f.putBodies["data.csv"], "date,solve_time_secs") {
		t.Fatalf("unexpected body: %q", f.putBodies["data.csv"])
	}
}

func TestNewStorageRejectsBadEndpoint(t *testing.T) {
	_, err := NewStorage(&Config{
		Endpoint:  "http://localhost:9000/path",
		AccessKey: "a",
		SecretKey: "b",
		Logger:    zap.NewNop(),
	})
	if err == nil {
		t.Fatal("expected error for endpoint with scheme and path")
	}
}
