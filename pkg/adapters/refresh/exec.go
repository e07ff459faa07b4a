package refresh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/aescanero/crossplot/pkg/ports"
	"go.uber.org/zap"
)

const (
	// maxLineSize bounds a single collector output line
	maxLineSize = 1024 * 1024
	// maxCapturedLines bounds the output kept for a batch-mode failure
	maxCapturedLines = 200
)

// Config holds collector invocation settings
type Config struct {
	Command   string
	TokenFlag string
	DateFlag  string
	// DataPath is passed as the positional output file argument
	DataPath string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// ExecRefresher runs the collector as a child process
type ExecRefresher struct {
	command   string
	tokenFlag string
	dateFlag  string
	dataPath  string
	timeout   time.Duration
	logger    *zap.Logger
}

var _ ports.Refresher = (*ExecRefresher)(nil)

// NewExecRefresher creates a new collector invoker
func NewExecRefresher(cfg *Config) *ExecRefresher {
	return &ExecRefresher{
		command:   cfg.Command,
		tokenFlag: cfg.TokenFlag,
		dateFlag:  cfg.DateFlag,
		dataPath:  cfg.DataPath,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

// Refresh runs the collector and waits for it to exit. stdout and stderr are
// merged and read line by line. With a sink every line is forwarded as soon as
// it is read; without one the tail of the output is kept for the error.
func (r *ExecRefresher) Refresh(ctx context.Context, req domain.TriggerRequest, sink ports.LineSink) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.command, r.args(req)...)
	cmd.WaitDelay = 5 * time.Second

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	r.logger.Info("starting collector",
		zap.String("command", r.command),
		zap.String("start_date", req.StartDate),
		zap.String("data_path", r.dataPath))

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return fmt.Errorf("failed to start %s: %w", r.command, err)
	}

	waitCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		waitCh <- err
	}()

	captured := newTail(maxCapturedLines)
	forward := sink
	lines := 0

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		lines++
		r.logger.Debug("collector output", zap.String("line", line))

		if forward == nil {
			captured.add(line)
			continue
		}
		if err := forward(line); err != nil {
			r.logger.Warn("stopped forwarding collector output", zap.Error(err))
			captured.add(line)
			forward = nil
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// keep the pipe drained so the child never blocks on a full buffer
		_, _ = io.Copy(io.Discard, pr)
	}

	waitErr := <-waitCh
	duration := time.Since(startTime)

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Warn("collector interrupted",
			zap.Duration("duration", duration),
			zap.Error(ctxErr))
		return fmt.Errorf("collector interrupted: %w", ctxErr)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			r.logger.Error("collector failed",
				zap.Int("exit_code", exitErr.ExitCode()),
				zap.Int("lines", lines),
				zap.Duration("duration", duration))
			return &domain.ProcessError{
				ExitCode: exitErr.ExitCode(),
				Output:   captured.String(),
			}
		}
		return fmt.Errorf("collector wait failed: %w", waitErr)
	}

	if scanErr != nil {
		return fmt.Errorf("failed to read collector output: %w", scanErr)
	}

	r.logger.Info("collector finished",
		zap.Int("lines", lines),
		zap.Duration("duration", duration))

	return nil
}

// args builds the collector argument list: token flag, date flag, output path
func (r *ExecRefresher) args(req domain.TriggerRequest) []string {
	return []string{r.tokenFlag, req.NYTToken, r.dateFlag, req.StartDate, r.dataPath}
}

// tail keeps the last n lines written to it
type tail struct {
	lines []string
	max   int
}

func newTail(max int) *tail {
	return &tail{max: max}
}

func (t *tail) add(line string) {
	if len(t.lines) == t.max {
		t.lines = t.lines[1:]
	}
	t.lines = append(t.lines, line)
}

func (t *tail) String() string {
	return strings.Join(t.lines, "\n")
}
