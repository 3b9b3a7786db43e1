package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-booking-api/internal/models"
)

// TimeSlotRepository reads the fixed time-slot catalog. The catalog is not
// editable through this API.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new time-slot repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// List returns the catalog in display order.
func (r *TimeSlotRepository) List(ctx context.Context) ([]models.TimeSlot, error) {
	const query = `SELECT id, display, start_time, end_time, sort_order FROM time_slots ORDER BY sort_order`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// Catalog loads the catalog as an immutable value.
func (r *TimeSlotRepository) Catalog(ctx context.Context) (models.SlotCatalog, error) {
	slots, err := r.List(ctx)
	if err != nil {
		return models.SlotCatalog{}, err
	}
	return models.NewSlotCatalog(slots), nil
}
