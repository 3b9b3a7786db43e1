package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/dto"
	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type builderBookingSource interface {
	ListAwaitingScheduling(ctx context.Context) ([]models.BookingCandidate, error)
}

type builderLabSource interface {
	List(ctx context.Context) ([]models.Lab, error)
}

type builderSlotSource interface {
	Catalog(ctx context.Context) (models.SlotCatalog, error)
}

type builderAvailabilitySource interface {
	MapAll(ctx context.Context) (map[string][]string, error)
}

// ScheduleRequestBuilder assembles the solver input document from current
// lab, booking, slot, and availability data. The output is a plain document
// with no behavior; building twice without intervening mutations yields
// structurally identical requests.
type ScheduleRequestBuilder struct {
	bookings     builderBookingSource
	labs         builderLabSource
	slots        builderSlotSource
	availability builderAvailabilitySource
	logger       *zap.Logger
}

// NewScheduleRequestBuilder wires builder dependencies.
func NewScheduleRequestBuilder(
	bookings builderBookingSource,
	labs builderLabSource,
	slots builderSlotSource,
	availability builderAvailabilitySource,
	logger *zap.Logger,
) *ScheduleRequestBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRequestBuilder{
		bookings:     bookings,
		labs:         labs,
		slots:        slots,
		availability: availability,
		logger:       logger,
	}
}

// Build snapshots the awaiting-scheduling bookings and their surrounding
// data into one SchedulingRequest. The catalog used for slot derivation is
// returned alongside so the reconciler works from the same snapshot.
func (b *ScheduleRequestBuilder) Build(ctx context.Context) (*dto.SchedulingRequest, models.SlotCatalog, error) {
	catalog, err := b.slots.Catalog(ctx)
	if err != nil {
		return nil, models.SlotCatalog{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time-slot catalog")
	}

	labs, err := b.labs.List(ctx)
	if err != nil {
		return nil, models.SlotCatalog{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load labs")
	}

	candidates, err := b.bookings.ListAwaitingScheduling(ctx)
	if err != nil {
		return nil, models.SlotCatalog{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load awaiting bookings")
	}

	availability, err := b.availability.MapAll(ctx)
	if err != nil {
		return nil, models.SlotCatalog{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty availability")
	}

	request := &dto.SchedulingRequest{
		Labs:                make([]dto.SolverLab, 0, len(labs)),
		LabSessionRequests:  make([]dto.LabSessionRequest, 0, len(candidates)),
		TimeSlots:           make([]dto.SolverTimeSlot, 0, catalog.Len()),
		FacultyAvailability: make(map[string][]string),
	}

	labTypes := make(map[string]string, len(labs))
	for _, lab := range labs {
		labTypes[lab.ID] = lab.LabType
		request.Labs = append(request.Labs, dto.SolverLab{
			ID:       lab.ID,
			Name:     lab.Name,
			Capacity: lab.Capacity,
			Type:     lab.LabType,
		})
	}

	for _, slot := range catalog.Slots() {
		request.TimeSlots = append(request.TimeSlots, dto.SolverTimeSlot{
			ID:        slot.ID,
			Display:   slot.Display,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
		})
	}

	// Sibling sessions of one course-section must carry the same faculty
	// identity. Candidates arrive in creation order, so the first owner
	// seen per section becomes canonical for all of its siblings.
	sectionFaculty := make(map[string]string)
	for _, candidate := range candidates {
		courseSection := candidate.CourseSection()
		facultyID, ok := sectionFaculty[courseSection]
		if !ok {
			facultyID = candidate.UserID
			sectionFaculty[courseSection] = facultyID
		}

		session := dto.LabSessionRequest{
			RequestID:       candidate.ID,
			CourseSection:   courseSection,
			FacultyID:       facultyID,
			StudentBatch:    candidate.StudentBatch(),
			DurationSlots:   catalog.DurationSlots(candidate.StartTime, candidate.EndTime),
			PreferredLabID:  candidate.LabID,
			RequiredLabType: labTypes[candidate.LabID],
		}
		// Batch size lets the solver enforce lab capacity. Ad hoc bookings
		// carry none and stay unconstrained.
		if candidate.BatchSize != nil {
			session.BatchSize = *candidate.BatchSize
		}
		if len(candidate.Equipment) > 0 {
			var equipment []string
			if err := json.Unmarshal(candidate.Equipment, &equipment); err != nil {
				b.logger.Warn("ignoring malformed equipment list",
					zap.String("booking_id", candidate.ID), zap.Error(err))
			} else {
				session.RequiredEquipment = equipment
			}
		}
		request.LabSessionRequests = append(request.LabSessionRequests, session)

		if _, ok := request.FacultyAvailability[facultyID]; !ok {
			slots := availability[facultyID]
			if len(slots) == 0 {
				// No recorded constraints means the full catalog.
				slots = catalog.IDs()
			}
			request.FacultyAvailability[facultyID] = slots
		}
	}

	b.logger.Info("scheduling request built",
		zap.Int("labs", len(request.Labs)),
		zap.Int("sessions", len(request.LabSessionRequests)),
		zap.Int("time_slots", len(request.TimeSlots)),
	)

	return request, catalog, nil
}
