package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type fakeReconcilerStore struct {
	overlaps     map[string]int
	placementErr map[string]error
	failureErr   map[string]error
	placed       []string
	failed       []string
}

func newFakeReconcilerStore() *fakeReconcilerStore {
	return &fakeReconcilerStore{
		overlaps:     make(map[string]int),
		placementErr: make(map[string]error),
		failureErr:   make(map[string]error),
	}
}

func (f *fakeReconcilerStore) CountOverlapping(_ context.Context, _ sqlx.ExtContext, _ string, _ time.Time, _, _, excludeID string) (int, error) {
	return f.overlaps[excludeID], nil
}

func (f *fakeReconcilerStore) ApplyPlacement(_ context.Context, _ sqlx.ExtContext, id, _ string, _ time.Time, _, _, _ string) error {
	if err := f.placementErr[id]; err != nil {
		return err
	}
	f.placed = append(f.placed, id)
	return nil
}

func (f *fakeReconcilerStore) MarkSchedulingFailed(_ context.Context, _ sqlx.ExtContext, id, _ string) error {
	if err := f.failureErr[id]; err != nil {
		return err
	}
	f.failed = append(f.failed, id)
	return nil
}

func newTxProviderMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() { _ = sqlxDB.Close() })
	return sqlxDB, mock
}

func reconcilerCatalog() models.SlotCatalog {
	return models.NewSlotCatalog([]models.TimeSlot{
		{ID: "TS1", StartTime: "09:00", EndTime: "10:00"},
		{ID: "TS2", StartTime: "10:00", EndTime: "11:00"},
	})
}

const solverResultTwoPlacements = `{
	"newlyScheduledBookings": [
		{"requestId": "booking-1", "assignedLabId": "lab-1", "assignedDate": "2026-03-12", "assignedTimeSlotId": "TS1", "purpose": "CS101 lab work"},
		{"requestId": "booking-2", "assignedLabId": "lab-1", "assignedDate": "2026-03-12", "assignedTimeSlotId": "TS2", "purpose": "CS101 lab work"}
	],
	"unscheduledRequests": [
		{"requestId": "booking-3", "reason": "no feasible slot"}
	]
}`

func TestScheduleReconcilerAppliesResult(t *testing.T) {
	db, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	store := newFakeReconcilerStore()
	reconciler := NewScheduleReconciler(store, db, nil, nil)

	summary, err := reconciler.Reconcile(context.Background(), []byte(solverResultTwoPlacements), reconcilerCatalog())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Booked)
	assert.Equal(t, 0, summary.SkippedConflicts)
	assert.Equal(t, 1, summary.FailedBySolver)
	assert.Equal(t, []string{"booking-1", "booking-2", "booking-3"}, summary.BookingIDs)
	assert.Equal(t, []string{"booking-1", "booking-2"}, store.placed)
	assert.Equal(t, []string{"booking-3"}, store.failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleReconcilerSkipsStaleConflicts(t *testing.T) {
	db, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	store := newFakeReconcilerStore()
	// A booking created after the solver snapshot now occupies booking-1's
	// assigned interval.
	store.overlaps["booking-1"] = 1
	reconciler := NewScheduleReconciler(store, db, nil, nil)

	summary, err := reconciler.Reconcile(context.Background(), []byte(solverResultTwoPlacements), reconcilerCatalog())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Booked)
	assert.Equal(t, 1, summary.SkippedConflicts)
	assert.Equal(t, []string{"booking-2"}, store.placed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleReconcilerLeavesSettledBookingsAlone(t *testing.T) {
	db, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	store := newFakeReconcilerStore()
	// booking-2 and booking-3 were cancelled mid-run; the guarded updates
	// match zero rows.
	store.placementErr["booking-2"] = sql.ErrNoRows
	store.failureErr["booking-3"] = sql.ErrNoRows
	reconciler := NewScheduleReconciler(store, db, nil, nil)

	summary, err := reconciler.Reconcile(context.Background(), []byte(solverResultTwoPlacements), reconcilerCatalog())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Booked)
	assert.Equal(t, 2, summary.SkippedConflicts)
	assert.Equal(t, 0, summary.FailedBySolver)
	assert.Equal(t, []string{"booking-1"}, summary.BookingIDs)
	assert.Equal(t, []string{"booking-1"}, store.placed)
	assert.Empty(t, store.failed, "a cancelled row must not flip to scheduling_failed")
	require.NoError(t, mock.ExpectationsWereMet(), "settled rows are skipped, not fatal; the batch still commits")
}

func TestScheduleReconcilerSkipsUnknownSlot(t *testing.T) {
	db, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	store := newFakeReconcilerStore()
	reconciler := NewScheduleReconciler(store, db, nil, nil)

	raw := `{"newlyScheduledBookings":[{"requestId":"booking-1","assignedLabId":"lab-1","assignedDate":"2026-03-12","assignedTimeSlotId":"TS99"}],"unscheduledRequests":[]}`
	summary, err := reconciler.Reconcile(context.Background(), []byte(raw), reconcilerCatalog())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Booked)
	assert.Equal(t, 1, summary.SkippedConflicts)
	assert.Empty(t, store.placed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleReconcilerRollsBackOnStorageError(t *testing.T) {
	db, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	store := newFakeReconcilerStore()
	store.placementErr["booking-2"] = errors.New("write failed")
	reconciler := NewScheduleReconciler(store, db, nil, nil)

	_, err := reconciler.Reconcile(context.Background(), []byte(solverResultTwoPlacements), reconcilerCatalog())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrReconciliation.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet(), "the whole batch must roll back on a storage error")
}

func TestScheduleReconcilerRejectsMalformedOutput(t *testing.T) {
	db, _ := newTxProviderMock(t)
	store := newFakeReconcilerStore()
	reconciler := NewScheduleReconciler(store, db, nil, nil)

	_, err := reconciler.Reconcile(context.Background(), []byte("Traceback (most recent call last):"), reconcilerCatalog())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrSolverOutput.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Traceback")
	assert.Empty(t, store.placed, "no transaction may start for unparseable output")
	assert.Empty(t, store.failed)
}
