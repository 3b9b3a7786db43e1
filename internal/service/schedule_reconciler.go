package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/dto"
	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

const outputExcerptLimit = 256

type reconcilerBookingStore interface {
	CountOverlapping(ctx context.Context, exec sqlx.ExtContext, labID string, date time.Time, startTime, endTime, excludeID string) (int, error)
	ApplyPlacement(ctx context.Context, exec sqlx.ExtContext, id, labID string, date time.Time, startTime, endTime, purpose string) error
	MarkSchedulingFailed(ctx context.Context, exec sqlx.ExtContext, id, reason string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ScheduleReconciler applies a solver result document to storage inside a
// single transaction. Placement conflicts discovered during re-validation
// are skipped and counted, never fatal; storage errors roll the whole batch
// back.
type ScheduleReconciler struct {
	bookings reconcilerBookingStore
	tx       txProvider
	logger   *zap.Logger
	metrics  *MetricsService
}

// NewScheduleReconciler wires reconciler dependencies.
func NewScheduleReconciler(bookings reconcilerBookingStore, tx txProvider, logger *zap.Logger, metrics *MetricsService) *ScheduleReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleReconciler{bookings: bookings, tx: tx, logger: logger, metrics: metrics}
}

// Reconcile parses raw solver stdout and applies its decisions. The solver's
// view may be stale, so every placement is re-validated against the rows
// currently persisted before it is written.
func (r *ScheduleReconciler) Reconcile(ctx context.Context, raw []byte, catalog models.SlotCatalog) (*dto.ScheduleRunSummary, error) {
	var result dto.SchedulingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSolverOutput.Code, appErrors.ErrSolverOutput.Status,
			fmt.Sprintf("malformed solver output: %s", excerptString(raw)))
	}

	if r.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := r.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrReconciliation.Code, appErrors.ErrReconciliation.Status, "failed to begin reconciliation transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	summary := &dto.ScheduleRunSummary{BookingIDs: make([]string, 0, len(result.NewlyScheduledBookings))}

	for _, placed := range result.NewlyScheduledBookings {
		slot, ok := catalog.ByID(placed.AssignedTimeSlotID)
		if !ok {
			r.logger.Warn("solver assigned an unknown time slot",
				zap.String("booking_id", placed.RequestID),
				zap.String("time_slot_id", placed.AssignedTimeSlotID))
			summary.SkippedConflicts++
			continue
		}
		date, parseErr := time.Parse("2006-01-02", placed.AssignedDate)
		if parseErr != nil {
			r.logger.Warn("solver assigned an unparseable date",
				zap.String("booking_id", placed.RequestID),
				zap.String("date", placed.AssignedDate))
			summary.SkippedConflicts++
			continue
		}

		var count int
		count, err = r.bookings.CountOverlapping(ctx, tx, placed.AssignedLabID, date, slot.StartTime, slot.EndTime, placed.RequestID)
		if err != nil {
			err = appErrors.Wrap(err, appErrors.ErrReconciliation.Code, appErrors.ErrReconciliation.Status, "conflict re-validation failed")
			return nil, err
		}
		if count > 0 {
			// The placement raced a booking created after the request
			// snapshot. Skip this row and keep going.
			summary.SkippedConflicts++
			r.logger.Info("skipping stale solver placement",
				zap.String("booking_id", placed.RequestID),
				zap.String("lab_id", placed.AssignedLabID),
				zap.String("date", placed.AssignedDate),
				zap.String("slot", placed.AssignedTimeSlotID))
			continue
		}

		if err = r.bookings.ApplyPlacement(ctx, tx, placed.RequestID, placed.AssignedLabID, date, slot.StartTime, slot.EndTime, placed.Purpose); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// The row settled after the snapshot, e.g. the owner
				// cancelled mid-run. Its status stands; terminal states
				// admit no resurrection.
				err = nil
				summary.SkippedConflicts++
				r.logger.Info("skipping placement for settled booking",
					zap.String("booking_id", placed.RequestID))
				continue
			}
			err = appErrors.Wrap(err, appErrors.ErrReconciliation.Code, appErrors.ErrReconciliation.Status,
				fmt.Sprintf("failed to apply placement for booking %s", placed.RequestID))
			return nil, err
		}
		summary.Booked++
		summary.BookingIDs = append(summary.BookingIDs, placed.RequestID)
	}

	for _, unplaced := range result.UnscheduledRequests {
		if err = r.bookings.MarkSchedulingFailed(ctx, tx, unplaced.RequestID, unplaced.Reason); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = nil
				summary.SkippedConflicts++
				r.logger.Info("skipping failure mark for settled booking",
					zap.String("booking_id", unplaced.RequestID))
				continue
			}
			err = appErrors.Wrap(err, appErrors.ErrReconciliation.Code, appErrors.ErrReconciliation.Status,
				fmt.Sprintf("failed to mark booking %s as unscheduled", unplaced.RequestID))
			return nil, err
		}
		summary.FailedBySolver++
		summary.BookingIDs = append(summary.BookingIDs, unplaced.RequestID)
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrReconciliation.Code, appErrors.ErrReconciliation.Status, "failed to commit reconciliation transaction")
		return nil, err
	}

	r.metrics.RecordReconciliation(summary.Booked, summary.SkippedConflicts, summary.FailedBySolver)
	r.logger.Info("reconciliation committed",
		zap.Int("booked", summary.Booked),
		zap.Int("skipped_conflicts", summary.SkippedConflicts),
		zap.Int("failed_by_solver", summary.FailedBySolver),
	)

	return summary, nil
}

func excerptString(raw []byte) string {
	if len(raw) > outputExcerptLimit {
		raw = raw[:outputExcerptLimit]
	}
	return string(raw)
}
