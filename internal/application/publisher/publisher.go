package publisher

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/aescanero/crossplot/pkg/ports"
	"go.uber.org/zap"
)

// Config holds publisher dependencies and settings
type Config struct {
	Renderer ports.Renderer
	Storage  ports.ObjectStorage
	Bucket   string
	DataPath string
	PlotPath string
	// Timeout bounds each storage call
	Timeout time.Duration
	Logger  *zap.Logger
}

// Publisher renders and uploads trigger artifacts
type Publisher struct {
	renderer ports.Renderer
	storage  ports.ObjectStorage
	bucket   string
	dataPath string
	plotPath string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPublisher creates a new artifact publisher
func NewPublisher(cfg *Config) *Publisher {
	return &Publisher{
		renderer: cfg.Renderer,
		storage:  cfg.Storage,
		bucket:   cfg.Bucket,
		dataPath: cfg.DataPath,
		plotPath: cfg.PlotPath,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Bucket returns the destination bucket name
func (p *Publisher) Bucket() string {
	return p.bucket
}

// GeneratePlot renders the local data file into the local plot file
func (p *Publisher) GeneratePlot(ctx context.Context) error {
	if err := p.renderer.Render(ctx, p.dataPath, p.plotPath); err != nil {
		p.logger.Error("failed to render plot",
			zap.String("data_path", p.dataPath),
			zap.String("plot_path", p.plotPath),
			zap.Error(err))
		return fmt.Errorf("failed to render plot: %w", err)
	}
	return nil
}

// Upload ensures the bucket exists and puts localPath under objectKey.
// Storage errors are always returned to the caller.
func (p *Publisher) Upload(ctx context.Context, localPath, objectKey string) (domain.Upload, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.ensureBucket(ctx); err != nil {
		p.logger.Error("failed to prepare bucket",
			zap.String("bucket", p.bucket),
			zap.Error(err))
		return domain.Upload{}, err
	}

	size, err := p.storage.PutFile(ctx, p.bucket, objectKey, localPath, contentType(localPath))
	if err != nil {
		p.logger.Error("failed to upload object",
			zap.String("bucket", p.bucket),
			zap.String("object", objectKey),
			zap.Error(err))
		return domain.Upload{}, err
	}

	p.logger.Info("object uploaded",
		zap.String("bucket", p.bucket),
		zap.String("object", objectKey),
		zap.Int64("size", size))

	return domain.Upload{
		Bucket:    p.bucket,
		ObjectKey: objectKey,
		LocalPath: localPath,
		Size:      size,
		At:        time.Now(),
	}, nil
}

// ensureBucket creates the bucket if it does not exist yet
func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.storage.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	p.logger.Info("creating bucket", zap.String("bucket", p.bucket))
	return p.storage.MakeBucket(ctx, p.bucket)
}

// contentType guesses the object content type from the file extension
func contentType(path string) string {
	switch ext := filepath.Ext(path); ext {
	case ".csv":
		return "text/csv"
	case ".svg":
		return "image/svg+xml"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
