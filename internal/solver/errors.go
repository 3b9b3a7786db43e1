package solver

import (
	"fmt"
	"time"
)

// LaunchError reports that the solver process could not be started at all:
// missing binary, bad permissions, or a non-executable path.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch solver %q: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the solver exceeded its deadline and was killed.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("solver timed out after %s", e.Timeout)
}

// ExitError reports a non-zero solver exit. Stderr is diagnostic text only,
// never parsed.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("solver exited with code %d", e.Code)
	}
	return fmt.Sprintf("solver exited with code %d: %s", e.Code, e.Stderr)
}
