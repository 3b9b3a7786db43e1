package service

import (
	"context"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type timeSlotRepository interface {
	List(ctx context.Context) ([]models.TimeSlot, error)
}

// TimeSlotService exposes the fixed slot catalog.
type TimeSlotService struct {
	repo timeSlotRepository
}

// NewTimeSlotService constructs a TimeSlotService instance.
func NewTimeSlotService(repo timeSlotRepository) *TimeSlotService {
	return &TimeSlotService{repo: repo}
}

// List returns the catalog in display order.
func (s *TimeSlotService) List(ctx context.Context) ([]models.TimeSlot, error) {
	slots, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	return slots, nil
}
