package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-booking-api/internal/models"
)

const bookingColumns = "id, lab_id, section_id, user_id, booking_date, start_time, end_time, purpose, equipment, status, created_at, updated_at"

// BookingRepository provides persistence for bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new booking row.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, lab_id, section_id, user_id, booking_date, start_time, end_time, purpose, equipment, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.LabID, booking.SectionID, booking.UserID,
		booking.BookingDate, booking.StartTime, booking.EndTime,
		booking.Purpose, booking.Equipment, string(booking.Status),
		booking.CreatedAt, booking.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings with optional filtering and pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.LabID != "" {
		conditions = append(conditions, fmt.Sprintf("lab_id = $%d", len(args)+1))
		args = append(args, filter.LabID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("booking_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY booking_date, start_time LIMIT %d OFFSET %d", bookingColumns, base, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// CountOverlapping counts interval-holding bookings on the lab and date that
// overlap the half-open [startTime, endTime) candidate. An existing row
// ending exactly at the candidate's start (or starting at its end) does not
// overlap. The explicit equality disjunct is redundant with the half-open
// comparison but guards against time precision truncation in storage.
// excludeID, when non-empty, skips the booking's own row so updates can
// re-validate against everyone else.
func (r *BookingRepository) CountOverlapping(ctx context.Context, exec sqlx.ExtContext, labID string, date time.Time, startTime, endTime, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
		WHERE lab_id = $1 AND booking_date = $2
		AND status IN ('pending', 'pending-admin-approval', 'approved-by-admin', 'booked')
		AND (NOT (end_time <= $3 OR start_time >= $4) OR (start_time = $3 AND end_time = $4))`
	args := []interface{}{labID, date, startTime, endTime}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}

	var count int
	row := r.exec(exec).QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count overlapping bookings: %w", err)
	}
	return count, nil
}

// CountByUserAndDate counts a user's interval-holding bookings on a date.
func (r *BookingRepository) CountByUserAndDate(ctx context.Context, userID string, date time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM bookings
		WHERE user_id = $1 AND booking_date = $2
		AND status IN ('pending', 'pending-admin-approval', 'approved-by-admin', 'booked')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, date); err != nil {
		return 0, fmt.Errorf("count user bookings: %w", err)
	}
	return count, nil
}

// UpdateStatus sets a booking's status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.BookingStatus) error {
	const query = `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyPlacement writes a solver placement onto the booking row and marks it
// booked. The status predicate keeps the write off rows that settled after
// the run snapshot (cancelled, rejected); those surface as sql.ErrNoRows.
func (r *BookingRepository) ApplyPlacement(ctx context.Context, exec sqlx.ExtContext, id, labID string, date time.Time, startTime, endTime, purpose string) error {
	const query = `UPDATE bookings
		SET lab_id = $1, booking_date = $2, start_time = $3, end_time = $4, purpose = $5, status = 'booked', updated_at = $6
		WHERE id = $7 AND status IN ('pending', 'pending-admin-approval')`
	result, err := r.exec(exec).ExecContext(ctx, query, labID, date, startTime, endTime, purpose, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("apply placement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply placement: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkSchedulingFailed flags a booking the solver could not place and
// appends the machine-supplied reason to the purpose for audit. Like
// ApplyPlacement it only touches rows still awaiting scheduling.
func (r *BookingRepository) MarkSchedulingFailed(ctx context.Context, exec sqlx.ExtContext, id, reason string) error {
	const query = `UPDATE bookings
		SET status = 'scheduling_failed', purpose = purpose || $1, updated_at = $2
		WHERE id = $3 AND status IN ('pending', 'pending-admin-approval')`
	annotation := " [scheduling failed: " + reason + "]"
	result, err := r.exec(exec).ExecContext(ctx, query, annotation, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark scheduling failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark scheduling failed: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAwaitingScheduling snapshots the bookings eligible for a solver run,
// joined to their owner and course section.
func (r *BookingRepository) ListAwaitingScheduling(ctx context.Context) ([]models.BookingCandidate, error) {
	const query = `SELECT b.id, b.lab_id, b.section_id, b.user_id, b.booking_date, b.start_time, b.end_time,
			b.purpose, b.equipment, b.status, b.created_at, b.updated_at,
			u.role AS owner_role,
			s.course_code AS course_code, s.name AS section_name, s.batch AS batch, s.size AS batch_size
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		LEFT JOIN sections s ON s.id = b.section_id
		WHERE b.status IN ('pending', 'pending-admin-approval')
		ORDER BY b.created_at`
	var candidates []models.BookingCandidate
	if err := r.db.SelectContext(ctx, &candidates, query); err != nil {
		return nil, fmt.Errorf("list awaiting bookings: %w", err)
	}
	return candidates, nil
}
