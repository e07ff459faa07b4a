// Package testutil builds a complete trigger stack for tests: the real
// collector invoker pointed at a stub script, the real SVG renderer, and
// in-memory lock, record and object storage.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aescanero/crossplot/internal/application/pipeline"
	"github.com/aescanero/crossplot/internal/application/publisher"
	lockmemory "github.com/aescanero/crossplot/pkg/adapters/lock/memory"
	metricsprom "github.com/aescanero/crossplot/pkg/adapters/metrics/prometheus"
	objmemory "github.com/aescanero/crossplot/pkg/adapters/objectstore/memory"
	"github.com/aescanero/crossplot/pkg/adapters/plot"
	recmemory "github.com/aescanero/crossplot/pkg/adapters/records/memory"
	"github.com/aescanero/crossplot/pkg/adapters/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Bucket is the bucket every test stack publishes to
const Bucket = "crossword"

// CollectorFiveRows writes a five-row CSV to its last argument and exits 0
const CollectorFiveRows = `echo "fetching puzzles from $4"
cat > "$5" <<'CSV'
date,day,solve_time_secs,opened_unix,solved_unix
2023-01-01,Sun,2712,1672560000,1672562712
2023-01-02,Mon,341,1672646400,1672646741
2023-01-03,Tue,402,1672732800,1672733202
2023-01-04,Wed,655,1672819200,1672819855
2023-01-05,Thu,1120,1672905600,1672906720
CSV
echo "wrote 5 rows"
`

// CollectorFails prints a diagnostic and exits 1 without writing data
const CollectorFails = `echo "invalid token"
exit 1
`

// Stack is a wired pipeline runner plus handles on its fakes
type Stack struct {
	Runner   *pipeline.Runner
	Storage  *objmemory.InMemoryStorage
	Records  *recmemory.InMemoryRecordStorage
	Registry *prometheus.Registry
	DataPath string
	PlotPath string
}

// NewStack writes script as the collector and wires a runner around it
func NewStack(t *testing.T, script string) *Stack {
	t.Helper()

	dir := t.TempDir()
	collector := filepath.Join(dir, "collector.sh")
	if err := os.WriteFile(collector, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write collector: %v", err)
	}

	logger := zap.NewNop()
	s := &Stack{
		Storage:  objmemory.NewInMemoryStorage(),
		Records:  recmemory.NewInMemoryRecordStorage(),
		Registry: prometheus.NewRegistry(),
		DataPath: filepath.Join(dir, "data.csv"),
		PlotPath: filepath.Join(dir, "plot.svg"),
	}

	refresher := refresh.NewExecRefresher(&refresh.Config{
		Command:   collector,
		TokenFlag: "-t",
		DateFlag:  "-s",
		DataPath:  s.DataPath,
		Timeout:   10 * time.Second,
		Logger:    logger,
	})

	renderer := plot.NewSVGRenderer(&plot.Config{
		ValueColumn: "solve_time_secs",
		Width:       8,
		Height:      4,
		Logger:      logger,
	})

	pub := publisher.NewPublisher(&publisher.Config{
		Renderer: renderer,
		Storage:  s.Storage,
		Bucket:   Bucket,
		DataPath: s.DataPath,
		PlotPath: s.PlotPath,
		Timeout:  5 * time.Second,
		Logger:   logger,
	})

	s.Runner = pipeline.NewRunner(&pipeline.Config{
		Refresher:      refresher,
		Publisher:      pub,
		Locker:         lockmemory.NewLocker(),
		Records:        s.Records,
		Metrics:        metricsprom.NewCollector(s.Registry),
		Logger:         logger,
		DataPath:       s.DataPath,
		PlotPath:       s.PlotPath,
		DataObjectKey:  "data.csv",
		PlotObjectKey:  "plot.svg",
		TriggerTimeout: 30 * time.Second,
	})

	return s
}
