// Package wifi provides Wi-Fi access point scanning for radiomap.
// It runs the external wireless scan tool, parses its raw output into
// structured network records, and maintains a continuously refreshed
// cache of observed networks keyed by BSSID.
package wifi

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anstrom/radiomap/internal/logging"
	"github.com/anstrom/radiomap/internal/metrics"
)

const (
	// External scanning tool. The interface argument is optional; the
	// tool scans all wireless interfaces when it is omitted.
	scanTool = "iwlist"

	// Upper bound on one scan tool invocation.
	defaultScanTimeout = 30 * time.Second
)

// runFunc executes a command and returns its combined stdout and stderr.
// It exists as a seam so tests can substitute the subprocess.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Executor runs one external scan command to completion or failure and
// returns the raw text output. All failure modes degrade to an empty
// result with a logged diagnostic; retrying is the continuous scanner's
// job via its next cycle, never the executor's.
type Executor struct {
	// Interface constrains the scan to one wireless interface when set.
	Interface string

	// Timeout bounds one tool invocation. Zero means the default.
	Timeout time.Duration

	run runFunc
}

// NewExecutor returns an executor for the given interface. An empty
// interface name lets the tool pick.
func NewExecutor(iface string) *Executor {
	return &Executor{
		Interface: iface,
		Timeout:   defaultScanTimeout,
		run:       runCommand,
	}
}

// Run invokes the scan tool once and returns its combined output as text.
// Invalid byte sequences in the output are replaced, never fatal. On any
// execution failure Run returns an empty string.
func (e *Executor) Run(ctx context.Context) string {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := make([]string, 0, 2)
	if e.Interface != "" {
		args = append(args, e.Interface)
	}
	args = append(args, "scan")

	start := time.Now()
	out, err := e.run(ctx, scanTool, args...)
	metrics.Global().RecordScanDuration(e.Interface, time.Since(start))

	if err == nil {
		return strings.ToValidUTF8(string(out), string(utf8.RuneError))
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		metrics.Global().IncrementScanErrors(e.Interface, "timeout")
		logging.ErrorScan("Wi-Fi scan timed out", e.Interface, err,
			"timeout", timeout)
	case errors.Is(err, exec.ErrNotFound):
		metrics.Global().IncrementScanErrors(e.Interface, "tool_missing")
		logging.ErrorScan("scan tool not found", e.Interface, err,
			"tool", scanTool)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			metrics.Global().IncrementScanErrors(e.Interface, "exit_status")
			logging.ErrorScan("Wi-Fi scan command failed", e.Interface, err,
				"exit_code", exitErr.ExitCode())
		} else {
			metrics.Global().IncrementScanErrors(e.Interface, "exec_failed")
			logging.ErrorScan("unexpected error during Wi-Fi scan", e.Interface, err)
		}
	}
	return ""
}
