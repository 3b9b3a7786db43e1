package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-booking-api/internal/dto"
	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/solver"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type fakeBuilder struct {
	request *dto.SchedulingRequest
	err     error
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (f *fakeBuilder) Build(context.Context) (*dto.SchedulingRequest, models.SlotCatalog, error) {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, models.SlotCatalog{}, f.err
	}
	return f.request, models.SlotCatalog{}, nil
}

type fakeSolver struct {
	output *solver.Output
	err    error
	calls  int
}

func (f *fakeSolver) Run(context.Context, dto.SchedulingRequest) (*solver.Output, error) {
	f.calls++
	return f.output, f.err
}

type fakeReconciler struct {
	summary *dto.ScheduleRunSummary
	err     error
	calls   int
}

func (f *fakeReconciler) Reconcile(context.Context, []byte, models.SlotCatalog) (*dto.ScheduleRunSummary, error) {
	f.calls++
	return f.summary, f.err
}

type fakeLocker struct {
	acquired bool
	released int
}

func (f *fakeLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) {
	return f.acquired, nil
}

func (f *fakeLocker) ReleaseLock(context.Context, string) {
	f.released++
}

func requestWithSessions(n int) *dto.SchedulingRequest {
	req := &dto.SchedulingRequest{FacultyAvailability: map[string][]string{}}
	for i := 0; i < n; i++ {
		req.LabSessionRequests = append(req.LabSessionRequests, dto.LabSessionRequest{RequestID: "booking"})
	}
	return req
}

func newRunServiceFixture(builder requestBuilder, sol solverRunner, rec resultReconciler, locks runLocker) *ScheduleRunService {
	return NewScheduleRunService(builder, sol, rec, locks, nil, nil, ScheduleRunConfig{Enabled: true})
}

func TestScheduleRunServiceDisabled(t *testing.T) {
	svc := NewScheduleRunService(&fakeBuilder{}, &fakeSolver{}, &fakeReconciler{}, nil, nil, nil, ScheduleRunConfig{Enabled: false})

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrSolverDisabled.Code, appErr.Code)
}

func TestScheduleRunServiceNoWork(t *testing.T) {
	sol := &fakeSolver{}
	svc := newRunServiceFixture(&fakeBuilder{request: requestWithSessions(0)}, sol, &fakeReconciler{}, nil)

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "no bookings awaiting scheduling", res.Message)
	assert.Equal(t, 0, sol.calls, "the solver must not launch without awaiting bookings")
}

func TestScheduleRunServiceEmptyOutput(t *testing.T) {
	rec := &fakeReconciler{}
	sol := &fakeSolver{output: &solver.Output{Empty: true}}
	svc := newRunServiceFixture(&fakeBuilder{request: requestWithSessions(1)}, sol, rec, nil)

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "solver produced no output", res.Message)
	assert.Equal(t, 0, rec.calls, "empty output must not open a transaction")
}

func TestScheduleRunServiceCompleted(t *testing.T) {
	summary := &dto.ScheduleRunSummary{Booked: 2, SkippedConflicts: 1, FailedBySolver: 1}
	rec := &fakeReconciler{summary: summary}
	sol := &fakeSolver{output: &solver.Output{Stdout: []byte(`{}`)}}
	locks := &fakeLocker{acquired: true}
	svc := newRunServiceFixture(&fakeBuilder{request: requestWithSessions(4)}, sol, rec, locks)

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, summary, res.Summary)
	assert.Contains(t, res.Message, "2 booked")
	assert.Equal(t, 1, locks.released, "the advisory lock must be released after the run")
}

func TestScheduleRunServiceMapsSolverErrors(t *testing.T) {
	cases := []struct {
		name      string
		solverErr error
		wantCode  string
	}{
		{"launch failure", &solver.LaunchError{Path: "/missing/solver", Err: errors.New("no such file")}, appErrors.ErrSolverLaunch.Code},
		{"timeout", &solver.TimeoutError{Timeout: time.Second}, appErrors.ErrSolverTimeout.Code},
		{"non-zero exit", &solver.ExitError{Code: 1, Stderr: "INFEASIBLE"}, appErrors.ErrSolverExit.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sol := &fakeSolver{err: tc.solverErr}
			svc := newRunServiceFixture(&fakeBuilder{request: requestWithSessions(1)}, sol, &fakeReconciler{}, nil)

			_, err := svc.Run(context.Background())
			require.Error(t, err)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tc.wantCode, appErr.Code)
		})
	}
}

func TestScheduleRunServiceExitErrorCarriesStderr(t *testing.T) {
	sol := &fakeSolver{err: &solver.ExitError{Code: 3, Stderr: "model infeasible"}}
	svc := newRunServiceFixture(&fakeBuilder{request: requestWithSessions(1)}, sol, &fakeReconciler{}, nil)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "model infeasible")
	assert.Contains(t, appErr.Message, "3")
}

func TestScheduleRunServiceLockDenied(t *testing.T) {
	locks := &fakeLocker{acquired: false}
	svc := newRunServiceFixture(&fakeBuilder{request: requestWithSessions(1)}, &fakeSolver{}, &fakeReconciler{}, locks)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrRunActive.Code, appErr.Code)
}

func TestScheduleRunServiceRejectsConcurrentRuns(t *testing.T) {
	builder := &fakeBuilder{
		request: requestWithSessions(0),
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	svc := newRunServiceFixture(builder, &fakeSolver{}, &fakeReconciler{}, nil)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		firstDone <- err
	}()

	<-builder.started

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrRunActive.Code, appErr.Code)

	close(builder.release)
	require.NoError(t, <-firstDone)

	// Once the first run drains, a fresh run may start.
	_, err = svc.Run(context.Background())
	require.NoError(t, err)
}
