package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/dto"
	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/solver"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

const runLockKey = "scheduler:run-lock"

type requestBuilder interface {
	Build(ctx context.Context) (*dto.SchedulingRequest, models.SlotCatalog, error)
}

type solverRunner interface {
	Run(ctx context.Context, request dto.SchedulingRequest) (*solver.Output, error)
}

type resultReconciler interface {
	Reconcile(ctx context.Context, raw []byte, catalog models.SlotCatalog) (*dto.ScheduleRunSummary, error)
}

type runLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string)
}

// ScheduleRunConfig governs run orchestration.
type ScheduleRunConfig struct {
	Enabled    bool
	RunLockTTL time.Duration
}

// ScheduleRunService orchestrates one scheduling run: build the request,
// hand it to the solver process, reconcile the result. Runs are strictly
// single-flight: the builder snapshots awaiting rows at call time and the
// reconciler re-validates only against live conflicts, so two concurrent
// runs could approve mutually conflicting placements.
type ScheduleRunService struct {
	builder    requestBuilder
	solver     solverRunner
	reconciler resultReconciler
	locks      runLocker
	logger     *zap.Logger
	metrics    *MetricsService
	cfg        ScheduleRunConfig

	running atomic.Bool
}

// NewScheduleRunService wires run orchestration dependencies. locks may be
// nil when Redis is disabled; the local flag still serializes runs within
// one process.
func NewScheduleRunService(
	builder requestBuilder,
	solverClient solverRunner,
	reconciler resultReconciler,
	locks runLocker,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg ScheduleRunConfig,
) *ScheduleRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunLockTTL <= 0 {
		cfg.RunLockTTL = 5 * time.Minute
	}
	return &ScheduleRunService{
		builder:    builder,
		solver:     solverClient,
		reconciler: reconciler,
		locks:      locks,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// Run executes one scheduling run end to end and reports its summary.
func (s *ScheduleRunService) Run(ctx context.Context) (*dto.ScheduleRunResponse, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.ErrSolverDisabled
	}

	if !s.running.CompareAndSwap(false, true) {
		s.metrics.RecordScheduleRun("rejected_concurrent")
		return nil, appErrors.ErrRunActive
	}
	defer s.running.Store(false)

	if s.locks != nil {
		ok, err := s.locks.AcquireLock(ctx, runLockKey, s.cfg.RunLockTTL)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire run lock")
		}
		if !ok {
			s.metrics.RecordScheduleRun("rejected_concurrent")
			return nil, appErrors.ErrRunActive
		}
		defer s.locks.ReleaseLock(ctx, runLockKey)
	}

	request, catalog, err := s.builder.Build(ctx)
	if err != nil {
		s.metrics.RecordScheduleRun("build_failed")
		return nil, err
	}

	if len(request.LabSessionRequests) == 0 {
		s.metrics.RecordScheduleRun("no_work")
		return &dto.ScheduleRunResponse{
			Success: true,
			Message: "no bookings awaiting scheduling",
			Summary: &dto.ScheduleRunSummary{Note: "no bookings awaiting scheduling"},
		}, nil
	}

	output, err := s.solver.Run(ctx, *request)
	if err != nil {
		return nil, s.mapSolverError(err)
	}

	if output.Empty {
		// Exit 0 with no stdout is a zero-work completion, not a failure.
		// No transaction is opened.
		s.metrics.RecordScheduleRun("empty_output")
		return &dto.ScheduleRunResponse{
			Success: true,
			Message: "solver produced no output",
			Summary: &dto.ScheduleRunSummary{Note: "solver produced no output"},
		}, nil
	}

	summary, err := s.reconciler.Reconcile(ctx, output.Stdout, catalog)
	if err != nil {
		s.metrics.RecordScheduleRun("reconcile_failed")
		return nil, err
	}

	s.metrics.RecordScheduleRun("completed")
	return &dto.ScheduleRunResponse{
		Success: true,
		Message: fmt.Sprintf("scheduling run completed: %d booked, %d skipped, %d failed", summary.Booked, summary.SkippedConflicts, summary.FailedBySolver),
		Summary: summary,
	}, nil
}

func (s *ScheduleRunService) mapSolverError(err error) error {
	var launchErr *solver.LaunchError
	if errors.As(err, &launchErr) {
		s.metrics.RecordScheduleRun("launch_failed")
		return appErrors.Wrap(err, appErrors.ErrSolverLaunch.Code, appErrors.ErrSolverLaunch.Status,
			fmt.Sprintf("failed to launch solver at %q", launchErr.Path))
	}

	var timeoutErr *solver.TimeoutError
	if errors.As(err, &timeoutErr) {
		s.metrics.RecordScheduleRun("timeout")
		return appErrors.Wrap(err, appErrors.ErrSolverTimeout.Code, appErrors.ErrSolverTimeout.Status,
			fmt.Sprintf("solver timed out after %s", timeoutErr.Timeout))
	}

	var exitErr *solver.ExitError
	if errors.As(err, &exitErr) {
		s.metrics.RecordScheduleRun("exit_nonzero")
		message := fmt.Sprintf("solver exited with code %d", exitErr.Code)
		if exitErr.Stderr != "" {
			message += ": " + exitErr.Stderr
		}
		return appErrors.Wrap(err, appErrors.ErrSolverExit.Code, appErrors.ErrSolverExit.Status, message)
	}

	s.metrics.RecordScheduleRun("failed")
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scheduling run failed")
}
