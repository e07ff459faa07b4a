package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/crossplot/internal/application/publisher"
	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/aescanero/crossplot/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds runner dependencies and settings
type Config struct {
	Refresher ports.Refresher
	Publisher *publisher.Publisher
	Locker    ports.Locker
	Records   ports.TriggerRecords
	Metrics   ports.MetricsCollector
	Validator *Validator
	Logger    *zap.Logger

	DataPath      string
	PlotPath      string
	DataObjectKey string
	PlotObjectKey string

	// TriggerTimeout bounds a whole trigger, lock wait included
	TriggerTimeout time.Duration
}

// Runner drives triggers through the pipeline
type Runner struct {
	refresher ports.Refresher
	publisher *publisher.Publisher
	locker    ports.Locker
	records   ports.TriggerRecords
	metrics   ports.MetricsCollector
	validator *Validator
	logger    *zap.Logger

	dataPath      string
	plotPath      string
	dataObjectKey string
	plotObjectKey string

	triggerTimeout time.Duration
}

// NewRunner creates a new pipeline runner
func NewRunner(cfg *Config) *Runner {
	validator := cfg.Validator
	if validator == nil {
		validator = NewValidator()
	}
	return &Runner{
		refresher:      cfg.Refresher,
		publisher:      cfg.Publisher,
		locker:         cfg.Locker,
		records:        cfg.Records,
		metrics:        cfg.Metrics,
		validator:      validator,
		logger:         cfg.Logger,
		dataPath:       cfg.DataPath,
		plotPath:       cfg.PlotPath,
		dataObjectKey:  cfg.DataObjectKey,
		plotObjectKey:  cfg.PlotObjectKey,
		triggerTimeout: cfg.TriggerTimeout,
	}
}

// Validate checks a request without starting a trigger
func (r *Runner) Validate(req domain.TriggerRequest) error {
	return r.validator.Validate(req)
}

// NewRecord creates the idle record for a new trigger
func (r *Runner) NewRecord(mode domain.TriggerMode, req domain.TriggerRequest) *domain.TriggerRecord {
	now := time.Now()
	return &domain.TriggerRecord{
		ID:        uuid.New().String(),
		State:     domain.TriggerStateIdle,
		Mode:      mode,
		StartDate: req.StartDate,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Get returns the stored record of a trigger
func (r *Runner) Get(ctx context.Context, id string) (*domain.TriggerRecord, error) {
	return r.records.Get(ctx, id)
}

// Run executes one trigger. With a sink, collector output is forwarded line
// by line; otherwise it is captured. rec is updated in place and ends in a
// terminal state.
func (r *Runner) Run(ctx context.Context, rec *domain.TriggerRecord, req domain.TriggerRequest, sink ports.LineSink) error {
	logger := r.logger.With(
		zap.String("trigger_id", rec.ID),
		zap.String("mode", string(rec.Mode)))

	r.metrics.SetActiveTriggers(1)
	defer r.metrics.SetActiveTriggers(-1)

	// Validation failures never reach the record store or the lock
	rec.State = domain.TriggerStateValidating
	if err := r.validator.Validate(req); err != nil {
		r.finish(ctx, rec, domain.TriggerStateValidating, err, false)
		logger.Info("trigger rejected", zap.Error(err))
		return err
	}

	if r.triggerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.triggerTimeout)
		defer cancel()
	}

	// Visible to lookups while waiting for the lock
	rec.UpdatedAt = time.Now()
	r.save(ctx, rec)

	release, err := r.locker.Acquire(ctx, r.dataPath)
	if err != nil {
		err = &domain.StageError{
			Stage: domain.TriggerStateRefreshing,
			Err:   fmt.Errorf("failed to acquire trigger lock: %w", err),
		}
		r.finish(ctx, rec, domain.TriggerStateRefreshing, err, true)
		logger.Error("trigger failed", zap.Error(err))
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			logger.Error("failed to release trigger lock", zap.Error(err))
		}
	}()

	logger.Info("trigger started", zap.String("start_date", req.StartDate))

	// refreshing
	var forward ports.LineSink
	if sink != nil {
		forward = func(line string) error {
			rec.Lines++
			r.metrics.RecordStreamedLine()
			return sink(line)
		}
	}
	err = r.stage(ctx, rec, domain.TriggerStateRefreshing, func(ctx context.Context) error {
		return r.refresher.Refresh(ctx, req, forward)
	})
	if err != nil {
		var procErr *domain.ProcessError
		if errors.As(err, &procErr) {
			code := procErr.ExitCode
			rec.ExitCode = &code
		}
		return r.fail(ctx, logger, rec, domain.TriggerStateRefreshing, err)
	}
	zero := 0
	rec.ExitCode = &zero

	// plotting
	err = r.stage(ctx, rec, domain.TriggerStatePlotting, r.publisher.GeneratePlot)
	if err != nil {
		return r.fail(ctx, logger, rec, domain.TriggerStatePlotting, err)
	}

	// uploading
	uploads := []struct {
		state     domain.TriggerState
		localPath string
		objectKey string
	}{
		{domain.TriggerStateUploadingData, r.dataPath, r.dataObjectKey},
		{domain.TriggerStateUploadingPlot, r.plotPath, r.plotObjectKey},
	}
	for _, u := range uploads {
		err = r.stage(ctx, rec, u.state, func(ctx context.Context) error {
			up, err := r.publisher.Upload(ctx, u.localPath, u.objectKey)
			if err != nil {
				return err
			}
			rec.Uploads = append(rec.Uploads, up)
			r.metrics.RecordUpload(u.objectKey)
			return nil
		})
		if err != nil {
			return r.fail(ctx, logger, rec, u.state, err)
		}
	}

	r.finish(ctx, rec, domain.TriggerStateDone, nil, true)
	logger.Info("trigger completed",
		zap.String("bucket", r.publisher.Bucket()),
		zap.Int("uploads", len(rec.Uploads)),
		zap.Duration("duration", time.Since(rec.StartedAt)))

	return nil
}

// stage moves rec into state, runs fn and records its duration
func (r *Runner) stage(ctx context.Context, rec *domain.TriggerRecord, state domain.TriggerState, fn func(context.Context) error) error {
	rec.State = state
	rec.UpdatedAt = time.Now()
	r.save(ctx, rec)

	start := time.Now()
	err := fn(ctx)
	r.metrics.ObserveStage(string(state), time.Since(start))
	if err != nil {
		return &domain.StageError{Stage: state, Err: err}
	}
	return nil
}

// fail ends rec in the failed state and returns err
func (r *Runner) fail(ctx context.Context, logger *zap.Logger, rec *domain.TriggerRecord, stage domain.TriggerState, err error) error {
	r.finish(ctx, rec, stage, err, true)
	logger.Error("trigger failed",
		zap.String("stage", string(stage)),
		zap.Error(err))
	return err
}

// finish moves rec to its terminal state. A nil err means done.
func (r *Runner) finish(ctx context.Context, rec *domain.TriggerRecord, stage domain.TriggerState, err error, persist bool) {
	now := time.Now()
	rec.UpdatedAt = now
	rec.CompletedAt = &now

	outcome := "success"
	if err != nil {
		rec.State = domain.TriggerStateFailed
		rec.FailedStage = stage
		rec.Error = err.Error()
		outcome = "failed"
		if domain.IsValidation(err) {
			outcome = "rejected"
		}
		r.metrics.RecordStageFailure(string(stage))
	} else {
		rec.State = domain.TriggerStateDone
	}
	r.metrics.RecordTrigger(string(rec.Mode), outcome)

	if persist {
		r.save(context.WithoutCancel(ctx), rec)
	}
}

// save writes rec to the record store. Store errors never fail a trigger.
func (r *Runner) save(ctx context.Context, rec *domain.TriggerRecord) {
	if err := r.records.Save(ctx, rec); err != nil {
		r.logger.Warn("failed to save trigger record",
			zap.String("trigger_id", rec.ID),
			zap.String("state", string(rec.State)),
			zap.Error(err))
	}
}
