// Package ports defines the interfaces between the trigger pipeline and its
// adapters.
package ports

import (
	"context"
	"time"

	"github.com/aescanero/crossplot/pkg/domain"
)

// LineSink receives collector output one line at a time, without the newline.
// Returning an error stops forwarding; the collector still runs to completion.
type LineSink func(line string) error

// Refresher runs the external data collector
type Refresher interface {
	// Refresh writes a fresh data file. A nil sink captures output internally.
	Refresh(ctx context.Context, req domain.TriggerRequest, sink LineSink) error
}

// Renderer turns a data file into a plot file
type Renderer interface {
	Render(ctx context.Context, dataPath, plotPath string) error
}

// ObjectStorage is the subset of an S3-compatible API the publisher needs
type ObjectStorage interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	PutFile(ctx context.Context, bucket, objectKey, localPath, contentType string) (int64, error)
}

// Locker serializes triggers that share local files
type Locker interface {
	// Acquire blocks until key is held or ctx is done
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// TriggerRecords stores trigger snapshots
type TriggerRecords interface {
	Save(ctx context.Context, rec *domain.TriggerRecord) error
	Get(ctx context.Context, id string) (*domain.TriggerRecord, error)
}

// MetricsCollector records trigger metrics
type MetricsCollector interface {
	RecordTrigger(mode, outcome string)
	ObserveStage(stage string, duration time.Duration)
	RecordStageFailure(stage string)
	RecordUpload(object string)
	RecordStreamedLine()
	SetActiveTriggers(delta int)
}
