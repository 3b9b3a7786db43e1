// Package solver wraps the external scheduling solver behind a typed
// request/response client. The exchange is a synchronous RPC over process
// standard streams: one JSON document in on stdin, one JSON document out on
// stdout, exit code authoritative. Callers never touch process mechanics.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/dto"
)

const stderrExcerptLimit = 2048

// Output carries the raw result of one solver invocation. Stdout is left
// unparsed; interpreting it belongs to the reconciler.
type Output struct {
	Stdout []byte
	Stderr []byte
	// Empty marks the zero-work completion: exit 0 with no stdout. It is
	// not an error.
	Empty bool
}

// Client launches one solver process per Run call.
type Client struct {
	path    string
	args    []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient builds a solver client for the given binary.
func NewClient(path string, args []string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{path: path, args: args, timeout: timeout, logger: logger}
}

// Run serializes the request to the child's stdin, waits for termination,
// and applies the exit-code policy: code 0 with output is the only success
// path, code 0 without output is a zero-work completion, everything else is
// an error. The child is killed when the timeout elapses.
func (c *Client) Run(ctx context.Context, request dto.SchedulingRequest) (*Output, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode solver request: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.path, c.args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Path: c.path, Err: err}
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(started)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		c.logger.Warn("solver killed on timeout",
			zap.String("path", c.path),
			zap.Duration("timeout", c.timeout),
		)
		return nil, &TimeoutError{Timeout: c.timeout}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			c.logger.Warn("solver exited non-zero",
				zap.Int("code", exitErr.ExitCode()),
				zap.Duration("elapsed", elapsed),
			)
			return nil, &ExitError{Code: exitErr.ExitCode(), Stderr: excerpt(stderr.Bytes())}
		}
		return nil, fmt.Errorf("wait for solver: %w", waitErr)
	}

	out := &Output{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
		Empty:  len(bytes.TrimSpace(stdout.Bytes())) == 0,
	}
	c.logger.Info("solver completed",
		zap.Duration("elapsed", elapsed),
		zap.Int("stdout_bytes", len(out.Stdout)),
		zap.Bool("empty", out.Empty),
	)
	return out, nil
}

func excerpt(b []byte) string {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > stderrExcerptLimit {
		trimmed = trimmed[:stderrExcerptLimit]
	}
	return string(trimmed)
}
