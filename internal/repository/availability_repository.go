package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// AvailabilityRepository stores per-faculty available time slots.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByFaculty returns the slot ids one faculty is available in.
func (r *AvailabilityRepository) ListByFaculty(ctx context.Context, facultyID string) ([]string, error) {
	const query = `SELECT time_slot_id FROM faculty_availability WHERE faculty_id = $1 ORDER BY time_slot_id`
	var slotIDs []string
	if err := r.db.SelectContext(ctx, &slotIDs, query, facultyID); err != nil {
		return nil, fmt.Errorf("list faculty availability: %w", err)
	}
	return slotIDs, nil
}

// MapAll returns faculty id -> available slot ids for every faculty with
// recorded availability.
func (r *AvailabilityRepository) MapAll(ctx context.Context) (map[string][]string, error) {
	const query = `SELECT faculty_id, time_slot_id FROM faculty_availability ORDER BY faculty_id, time_slot_id`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("map faculty availability: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var facultyID, slotID string
		if err := rows.Scan(&facultyID, &slotID); err != nil {
			return nil, fmt.Errorf("scan faculty availability: %w", err)
		}
		result[facultyID] = append(result[facultyID], slotID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("map faculty availability: %w", err)
	}
	return result, nil
}

// Replace swaps a faculty's availability set atomically.
func (r *AvailabilityRepository) Replace(ctx context.Context, facultyID string, slotIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin availability tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM faculty_availability WHERE faculty_id = $1`, facultyID); err != nil {
		return fmt.Errorf("clear faculty availability: %w", err)
	}

	now := time.Now().UTC()
	for _, slotID := range slotIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO faculty_availability (faculty_id, time_slot_id, created_at) VALUES ($1, $2, $3)`,
			facultyID, slotID, now,
		); err != nil {
			return fmt.Errorf("insert faculty availability: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit availability tx: %w", err)
	}
	return nil
}
