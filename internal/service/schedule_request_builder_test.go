package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-booking-api/internal/models"
)

type fakeBuilderBookings struct {
	candidates []models.BookingCandidate
}

func (f *fakeBuilderBookings) ListAwaitingScheduling(context.Context) ([]models.BookingCandidate, error) {
	return f.candidates, nil
}

type fakeBuilderLabs struct {
	labs []models.Lab
}

func (f *fakeBuilderLabs) List(context.Context) ([]models.Lab, error) {
	return f.labs, nil
}

type fakeBuilderSlots struct {
	catalog models.SlotCatalog
}

func (f *fakeBuilderSlots) Catalog(context.Context) (models.SlotCatalog, error) {
	return f.catalog, nil
}

type fakeBuilderAvailability struct {
	byFaculty map[string][]string
}

func (f *fakeBuilderAvailability) MapAll(context.Context) (map[string][]string, error) {
	return f.byFaculty, nil
}

func strptr(s string) *string { return &s }

func intptr(n int) *int { return &n }

func builderCandidate(id, userID string, courseCode, sectionName *string) models.BookingCandidate {
	date, _ := time.Parse("2006-01-02", "2026-03-12")
	return models.BookingCandidate{
		Booking: models.Booking{
			ID:          id,
			LabID:       "lab-1",
			UserID:      userID,
			BookingDate: date,
			StartTime:   "09:00",
			EndTime:     "11:00",
			Purpose:     "CS101 lab work",
			Status:      models.BookingStatusPending,
		},
		OwnerRole:   models.RoleFaculty,
		CourseCode:  courseCode,
		SectionName: sectionName,
	}
}

func newBuilderFixture(candidates []models.BookingCandidate, availability map[string][]string) *ScheduleRequestBuilder {
	catalog := models.NewSlotCatalog([]models.TimeSlot{
		{ID: "TS1", Display: "09:00 - 10:00", StartTime: "09:00", EndTime: "10:00"},
		{ID: "TS2", Display: "10:00 - 11:00", StartTime: "10:00", EndTime: "11:00"},
	})
	return NewScheduleRequestBuilder(
		&fakeBuilderBookings{candidates: candidates},
		&fakeBuilderLabs{labs: []models.Lab{{ID: "lab-1", Name: "Physics Lab", Capacity: 30, LabType: "physics"}}},
		&fakeBuilderSlots{catalog: catalog},
		&fakeBuilderAvailability{byFaculty: availability},
		nil,
	)
}

func TestScheduleRequestBuilderBuild(t *testing.T) {
	candidates := []models.BookingCandidate{
		builderCandidate("booking-1", "faculty-1", strptr("CS101"), strptr("A")),
	}
	candidates[0].BatchSize = intptr(24)
	builder := newBuilderFixture(candidates, map[string][]string{"faculty-1": {"TS1"}})

	request, catalog, err := builder.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())

	require.Len(t, request.Labs, 1)
	assert.Equal(t, "physics", request.Labs[0].Type)
	require.Len(t, request.TimeSlots, 2)

	require.Len(t, request.LabSessionRequests, 1)
	session := request.LabSessionRequests[0]
	assert.Equal(t, "booking-1", session.RequestID)
	assert.Equal(t, "CS101-A", session.CourseSection)
	assert.Equal(t, "faculty-1", session.FacultyID)
	assert.Equal(t, 24, session.BatchSize)
	assert.Equal(t, 2, session.DurationSlots)
	assert.Equal(t, "lab-1", session.PreferredLabID)
	assert.Equal(t, "physics", session.RequiredLabType)

	assert.Equal(t, []string{"TS1"}, request.FacultyAvailability["faculty-1"])
}

func TestScheduleRequestBuilderFacultyConsistency(t *testing.T) {
	// Two sessions of the same course-section created by different users
	// must carry one canonical faculty identity.
	candidates := []models.BookingCandidate{
		builderCandidate("booking-1", "faculty-1", strptr("CS101"), strptr("A")),
		builderCandidate("booking-2", "faculty-2", strptr("CS101"), strptr("A")),
	}
	builder := newBuilderFixture(candidates, nil)

	request, _, err := builder.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, request.LabSessionRequests, 2)
	assert.Equal(t, "faculty-1", request.LabSessionRequests[0].FacultyID)
	assert.Equal(t, "faculty-1", request.LabSessionRequests[1].FacultyID)
}

func TestScheduleRequestBuilderAdhocFallbacks(t *testing.T) {
	candidates := []models.BookingCandidate{
		builderCandidate("booking-1", "faculty-1", nil, nil),
	}
	builder := newBuilderFixture(candidates, nil)

	request, _, err := builder.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, request.LabSessionRequests, 1)
	session := request.LabSessionRequests[0]
	assert.Equal(t, "adhoc-booking-1", session.CourseSection)
	assert.Equal(t, "batch-booking-1", session.StudentBatch)
	assert.Zero(t, session.BatchSize, "sectionless bookings carry no capacity requirement")
}

func TestScheduleRequestBuilderFullCatalogWhenUnconstrained(t *testing.T) {
	candidates := []models.BookingCandidate{
		builderCandidate("booking-1", "faculty-1", strptr("CS101"), strptr("A")),
	}
	builder := newBuilderFixture(candidates, map[string][]string{})

	request, _, err := builder.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"TS1", "TS2"}, request.FacultyAvailability["faculty-1"],
		"no recorded availability means the full catalog")
}

func TestScheduleRequestBuilderEquipment(t *testing.T) {
	withEquipment := builderCandidate("booking-1", "faculty-1", strptr("CS101"), strptr("A"))
	withEquipment.Equipment = types.JSONText(`["oscilloscope","signal generator"]`)
	malformed := builderCandidate("booking-2", "faculty-1", strptr("CS102"), strptr("B"))
	malformed.Equipment = types.JSONText(`not-json`)

	builder := newBuilderFixture([]models.BookingCandidate{withEquipment, malformed}, nil)

	request, _, err := builder.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, request.LabSessionRequests, 2)
	assert.Equal(t, []string{"oscilloscope", "signal generator"}, request.LabSessionRequests[0].RequiredEquipment)
	assert.Nil(t, request.LabSessionRequests[1].RequiredEquipment, "malformed equipment is dropped, not fatal")
}

func TestScheduleRequestBuilderDeterminism(t *testing.T) {
	candidates := []models.BookingCandidate{
		builderCandidate("booking-1", "faculty-1", strptr("CS101"), strptr("A")),
		builderCandidate("booking-2", "faculty-2", strptr("CS102"), strptr("B")),
	}
	builder := newBuilderFixture(candidates, map[string][]string{"faculty-1": {"TS2"}})

	first, _, err := builder.Build(context.Background())
	require.NoError(t, err)
	second, _, err := builder.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second, "building twice without mutations must yield identical documents")
}
