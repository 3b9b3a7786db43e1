package dto

import "github.com/noah-isme/lab-booking-api/internal/models"

// CreateBookingRequest is the payload for reserving a lab slot.
type CreateBookingRequest struct {
	LabID     string   `json:"labId" validate:"required"`
	SectionID string   `json:"sectionId" validate:"omitempty"`
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string   `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string   `json:"endTime" validate:"required,datetime=15:04"`
	Purpose   string   `json:"purpose" validate:"required,max=500"`
	Equipment []string `json:"equipment" validate:"omitempty,dive,required"`
}

// BookingResponse returns a booking together with the conflict outcome of
// the triggering operation.
type BookingResponse struct {
	Booking  models.Booking `json:"booking"`
	Conflict bool           `json:"conflict"`
}

// UpdateBookingStatusRequest is the admin payload for a status override.
type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateAvailabilityRequest replaces a faculty's available slot set.
type UpdateAvailabilityRequest struct {
	TimeSlotIDs []string `json:"timeSlotIds" validate:"required,dive,required"`
}

// AvailabilityResponse lists a faculty's available slot ids.
type AvailabilityResponse struct {
	FacultyID   string   `json:"faculty_id"`
	TimeSlotIDs []string `json:"time_slot_ids"`
}
