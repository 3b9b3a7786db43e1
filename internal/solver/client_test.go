package solver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-booking-api/internal/dto"
)

func writeStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "solver.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func sampleRequest() dto.SchedulingRequest {
	return dto.SchedulingRequest{
		Labs:                []dto.SolverLab{{ID: "lab-1", Name: "Physics Lab", Capacity: 30, Type: "physics"}},
		LabSessionRequests:  []dto.LabSessionRequest{{RequestID: "booking-1", CourseSection: "CS101-A", FacultyID: "faculty-1", StudentBatch: "batch-1", DurationSlots: 2}},
		TimeSlots:           []dto.SolverTimeSlot{{ID: "TS1", StartTime: "09:00", EndTime: "10:00"}},
		FacultyAvailability: map[string][]string{"faculty-1": {"TS1"}},
	}
}

func TestClientRunSuccess(t *testing.T) {
	path := writeStub(t, `cat > /dev/null
echo '{"newlyScheduledBookings":[],"unscheduledRequests":[]}'`)
	client := NewClient(path, nil, 10*time.Second, nil)

	out, err := client.Run(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.False(t, out.Empty)
	assert.Contains(t, string(out.Stdout), "newlyScheduledBookings")
}

func TestClientRunForwardsRequestOnStdin(t *testing.T) {
	path := writeStub(t, `cat`)
	client := NewClient(path, nil, 10*time.Second, nil)

	out, err := client.Run(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Contains(t, string(out.Stdout), `"labSessionRequests"`)
	assert.Contains(t, string(out.Stdout), `"booking-1"`)
	assert.Contains(t, string(out.Stdout), `"facultyAvailability"`)
}

func TestClientRunEmptyOutput(t *testing.T) {
	path := writeStub(t, `cat > /dev/null
exit 0`)
	client := NewClient(path, nil, 10*time.Second, nil)

	out, err := client.Run(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, out.Empty, "exit 0 with no stdout is a zero-work completion")
}

func TestClientRunNonZeroExit(t *testing.T) {
	path := writeStub(t, `cat > /dev/null
echo "INFEASIBLE: no slots" >&2
exit 3`)
	client := NewClient(path, nil, 10*time.Second, nil)

	_, err := client.Run(context.Background(), sampleRequest())
	require.Error(t, err)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "INFEASIBLE")
}

func TestClientRunTimeout(t *testing.T) {
	path := writeStub(t, `cat > /dev/null
sleep 5`)
	client := NewClient(path, nil, 200*time.Millisecond, nil)

	started := time.Now()
	_, err := client.Run(context.Background(), sampleRequest())
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, 200*time.Millisecond, timeoutErr.Timeout)
	assert.Less(t, time.Since(started), 3*time.Second, "the child must be killed, not awaited")
}

func TestClientRunMissingBinary(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "does-not-exist"), nil, time.Second, nil)

	_, err := client.Run(context.Background(), sampleRequest())
	require.Error(t, err)
	var launchErr *LaunchError
	require.True(t, errors.As(err, &launchErr))
	assert.Contains(t, launchErr.Path, "does-not-exist")
}
