package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/crossplot/internal/application/pipeline"
	"github.com/aescanero/crossplot/internal/application/publisher"
	"github.com/aescanero/crossplot/internal/config"
	lockmemory "github.com/aescanero/crossplot/pkg/adapters/lock/memory"
	lockredis "github.com/aescanero/crossplot/pkg/adapters/lock/redis"
	"github.com/aescanero/crossplot/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/crossplot/pkg/adapters/objectstore/minio"
	"github.com/aescanero/crossplot/pkg/adapters/plot"
	recmemory "github.com/aescanero/crossplot/pkg/adapters/records/memory"
	recredis "github.com/aescanero/crossplot/pkg/adapters/records/redis"
	"github.com/aescanero/crossplot/pkg/adapters/refresh"
	"github.com/aescanero/crossplot/pkg/api/grpc"
	"github.com/aescanero/crossplot/pkg/api/http"
	"github.com/aescanero/crossplot/pkg/api/websocket"
	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/aescanero/crossplot/pkg/ports"

	promclient "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting crossplot",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	if err := os.MkdirAll(cfg.Artifacts.WorkDir, 0o755); err != nil {
		logger.Fatal("failed to create work dir",
			zap.String("work_dir", cfg.Artifacts.WorkDir),
			zap.Error(err))
	}

	// Lock and record storage: Redis when configured, in-memory otherwise
	var (
		locker      ports.Locker
		records     ports.TriggerRecords
		redisClient *goredis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		locker = lockredis.NewLocker(redisClient, cfg.Lock.TTL, cfg.Lock.RetryInterval, logger)
		records = recredis.NewRecordStorage(redisClient, cfg.Lock.RecordTTL, logger)
	} else {
		logger.Info("REDIS_ADDR not set, using in-memory lock and records")
		locker = lockmemory.NewLocker()
		records = recmemory.NewInMemoryRecordStorage()
	}

	// Initialize adapters
	storage, err := minio.NewStorage(&minio.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Secure:    cfg.Storage.Secure,
		Region:    cfg.Storage.Region,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to create object storage client", zap.Error(err))
	}

	refresher := refresh.NewExecRefresher(&refresh.Config{
		Command:   cfg.Refresh.Command,
		TokenFlag: cfg.Refresh.TokenFlag,
		DateFlag:  cfg.Refresh.DateFlag,
		DataPath:  cfg.DataPath(),
		Timeout:   cfg.Timeouts.Refresh,
		Logger:    logger,
	})

	renderer := plot.NewSVGRenderer(&plot.Config{
		ValueColumn: cfg.Plot.ValueColumn,
		Width:       cfg.Plot.Width,
		Height:      cfg.Plot.Height,
		Logger:      logger,
	})

	metricsCollector := prometheus.NewCollector(promclient.DefaultRegisterer)

	// Initialize application components
	pub := publisher.NewPublisher(&publisher.Config{
		Renderer: renderer,
		Storage:  storage,
		Bucket:   cfg.Storage.Bucket,
		DataPath: cfg.DataPath(),
		PlotPath: cfg.PlotPath(),
		Timeout:  cfg.Timeouts.Storage,
		Logger:   logger,
	})

	runner := pipeline.NewRunner(&pipeline.Config{
		Refresher:      refresher,
		Publisher:      pub,
		Locker:         locker,
		Records:        records,
		Metrics:        metricsCollector,
		Logger:         logger,
		DataPath:       cfg.DataPath(),
		PlotPath:       cfg.PlotPath(),
		DataObjectKey:  cfg.Artifacts.DataObjectKey,
		PlotObjectKey:  cfg.Artifacts.PlotObjectKey,
		TriggerTimeout: cfg.Timeouts.Trigger,
	})

	// Initialize API servers
	defaultMode, _ := domain.ParseTriggerMode(cfg.TriggerMode)
	httpServer := http.NewServer(&http.Config{
		Port:        cfg.HTTPPort,
		Runner:      runner,
		DefaultMode: defaultMode,
		Logger:      logger,
	})

	// Add WebSocket handler to HTTP server
	httpServer.SetupWebSocket(websocket.NewHandler(runner, logger))

	var grpcServer *grpc.Server
	if cfg.GRPCPort > 0 {
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Port:   cfg.GRPCPort,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("failed to create gRPC server", zap.Error(err))
		}
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Start(); err != nil {
				logger.Fatal("gRPC server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("crossplot started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("trigger_mode", string(defaultMode)))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("crossplot shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
