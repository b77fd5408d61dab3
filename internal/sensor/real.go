package sensor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// maxStderrCapture bounds how much of a failing driver's stderr we retain.
const maxStderrCapture = 4096

// RealReader invokes an external driver process to obtain one temperature
// reading per call. The driver is expected to print a single decimal
// Celsius value to stdout and exit 0 on success (see
// original_source/temperature.py for the reference driver this mirrors).
type RealReader struct {
	driverPath string
	driverArgs []string
	timeout    time.Duration
	now        func() time.Time
}

// NewRealReader creates a Reader that invokes driverPath (with driverArgs)
// for every Read call. An empty timeout defaults to ReadTimeout.
func NewRealReader(driverPath string, driverArgs []string, timeout time.Duration) *RealReader {
	if timeout <= 0 {
		timeout = ReadTimeout
	}
	return &RealReader{
		driverPath: driverPath,
		driverArgs: driverArgs,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Read invokes the driver, enforcing the configured deadline, and validates
// its output. The driver's process is never left running past the deadline:
// CommandContext kills it on context cancellation.
func (r *RealReader) Read() (Reading, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.driverPath, r.driverArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	now := r.now()

	if ctx.Err() == context.DeadlineExceeded {
		return Reading{}, ErrTimeout{}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		code := -1
		if errors.As(runErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return Reading{}, ErrProcessError{Code: code, Stderr: truncate(stderr.String(), maxStderrCapture)}
	}

	raw := strings.TrimSpace(stdout.String())
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Reading{}, ErrParseError{Raw: raw, Err: err}
	}

	if value < MinTemp || value > MaxTempReading {
		return Reading{}, ErrOutOfRange{Value: value, Min: MinTemp, Max: MaxTempReading}
	}

	return Reading{Temperature: value, Timestamp: now, SourceOK: true}, nil
}

// Close is a no-op: RealReader holds no persistent resources between calls,
// matching the spec's "no side effects beyond the in-flight driver
// invocation" contract.
func (r *RealReader) Close() error { return nil }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...(truncated)", s[:n])
}
