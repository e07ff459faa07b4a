package refresh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/crossplot/pkg/domain"
	"go.uber.org/zap"
)

// writeScript writes an executable shell script standing in for the collector
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collector.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func newTestRefresher(t *testing.T, script string, timeout time.Duration) (*ExecRefresher, string) {
	t.Helper()
	dataPath := filepath.Join(t.TempDir(), "data.csv")
	return NewExecRefresher(&Config{
		Command:   script,
		TokenFlag: "-t",
		DateFlag:  "-s",
		DataPath:  dataPath,
		Timeout:   timeout,
		Logger:    zap.NewNop(),
	}), dataPath
}

var testRequest = domain.TriggerRequest{NYTToken: "abc", StartDate: "2023-01-01"}

func TestRefreshPassesArguments(t *testing.T) {
	script := writeScript(t, `printf '%s|%s|%s|%s\n' "$1" "$2" "$3" "$4" > "$5"
`)
	r, dataPath := newTestRefresher(t, script, 0)

	if err := r.Refresh(context.Background(), testRequest, nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	data, err := os.ReadFile(dataPath)
	if err != nil {
		t.Fatalf("read data file: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "-t|abc|-s|2023-01-01" {
		t.Fatalf("unexpected arguments: %q", got)
	}
}

func TestRefreshStreamsMergedOutput(t *testing.T) {
	script := writeScript(t, `echo "fetching ids"
echo "warning on stderr" 1>&2
echo "done"
`)
	r, _ := newTestRefresher(t, script, 0)

	var lines []string
	err := r.Refresh(context.Background(), testRequest, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	want := []string{"fetching ids", "warning on stderr", "done"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestRefreshNonZeroExit(t *testing.T) {
	script := writeScript(t, `echo "bad token"
exit 3
`)
	r, _ := newTestRefresher(t, script, 0)

	err := r.Refresh(context.Background(), testRequest, nil)
	var procErr *domain.ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessError, got %v", err)
	}
	if procErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", procErr.ExitCode)
	}
	if procErr.Output != "bad token" {
		t.Fatalf("expected captured output, got %q", procErr.Output)
	}
	if procErr.Error() != "Server process failed with error code 3" {
		t.Fatalf("unexpected message: %s", procErr.Error())
	}
}

func TestRefreshSinkErrorKeepsDraining(t *testing.T) {
	script := writeScript(t, `i=0
while [ $i -lt 100 ]; do echo "line $i"; i=$((i+1)); done
echo "ok" > "$5"
`)
	r, dataPath := newTestRefresher(t, script, 0)

	calls := 0
	err := r.Refresh(context.Background(), testRequest, func(line string) error {
		calls++
		return errors.New("client gone")
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected forwarding to stop after first failure, got %d calls", calls)
	}
	if _, err := os.Stat(dataPath); err != nil {
		t.Fatalf("expected collector to finish: %v", err)
	}
}

func TestRefreshTimeoutKillsCollector(t *testing.T) {
	script := writeScript(t, `exec sleep 10
`)
	r, _ := newTestRefresher(t, script, 200*time.Millisecond)

	start := time.Now()
	err := r.Refresh(context.Background(), testRequest, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("collector was not killed on timeout")
	}
}

func TestRefreshMissingCommand(t *testing.T) {
	r, _ := newTestRefresher(t, filepath.Join(t.TempDir(), "missing"), 0)

	err := r.Refresh(context.Background(), testRequest, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var procErr *domain.ProcessError
	if errors.As(err, &procErr) {
		t.Fatalf("start failure should not be a ProcessError: %v", err)
	}
}

func TestTailKeepsLastLines(t *testing.T) {
	tl := newTail(2)
	tl.add("a")
	tl.add("b")
	tl.add("c")
	if got := tl.String(); got != "b\nc" {
		t.Fatalf("unexpected tail: %q", got)
	}
}
