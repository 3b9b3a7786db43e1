package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/dto"
	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	CountOverlapping(ctx context.Context, exec sqlx.ExtContext, labID string, date time.Time, startTime, endTime, excludeID string) (int, error)
	CountByUserAndDate(ctx context.Context, userID string, date time.Time) (int, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.BookingStatus) error
}

type bookingLabReader interface {
	FindByID(ctx context.Context, id string) (*models.Lab, error)
}

type bookingSectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

// BookingConfig tunes booking service limits.
type BookingConfig struct {
	MaxPerDayPerUser int
}

// BookingService owns conflict detection and the booking status machine.
type BookingService struct {
	bookings  bookingRepository
	labs      bookingLabReader
	sections  bookingSectionReader
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       BookingConfig
}

// NewBookingService wires booking dependencies.
func NewBookingService(
	bookings bookingRepository,
	labs bookingLabReader,
	sections bookingSectionReader,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg BookingConfig,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		bookings:  bookings,
		labs:      labs,
		sections:  sections,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// HasConflict reports whether any interval-holding booking on the lab and
// date overlaps the half-open [startTime, endTime) candidate. excludeID
// skips the caller's own row when re-validating an update. Pure read.
func (s *BookingService) HasConflict(ctx context.Context, labID string, date time.Time, startTime, endTime, excludeID string) (bool, error) {
	count, err := s.bookings.CountOverlapping(ctx, nil, labID, date, startTime, endTime, excludeID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking conflicts")
	}
	return count > 0, nil
}

// Create reserves a lab slot. The resulting status depends on the actor's
// role and the conflict outcome: no conflict lands on booked, a faculty
// conflict escalates to pending-admin-approval, an admin conflict is
// refused outright with no row persisted.
func (s *BookingService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.PrivilegedBookingRole(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only faculty and admins may create bookings")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.StartTime >= req.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}

	if _, err := s.labs.FindByID(ctx, req.LabID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab")
	}

	var sectionID *string
	if req.SectionID != "" {
		if _, err := s.sections.FindByID(ctx, req.SectionID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		sectionID = &req.SectionID
	}

	if s.cfg.MaxPerDayPerUser > 0 {
		count, err := s.bookings.CountByUserAndDate(ctx, actor.UserID, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count bookings")
		}
		if count >= s.cfg.MaxPerDayPerUser {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("daily booking limit of %d reached", s.cfg.MaxPerDayPerUser))
		}
	}

	conflict, err := s.HasConflict(ctx, req.LabID, date, req.StartTime, req.EndTime, "")
	if err != nil {
		return nil, err
	}

	status := models.BookingStatusBooked
	if conflict {
		if actor.Role == models.RoleAdmin {
			// Admins resolve conflicts manually; never persist a
			// conflicting row on their behalf.
			return nil, appErrors.Clone(appErrors.ErrConflict, "requested interval conflicts with an existing booking")
		}
		status = models.BookingStatusPendingAdminApproval
	}

	var equipment types.JSONText
	if len(req.Equipment) > 0 {
		raw, err := json.Marshal(req.Equipment)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode equipment list")
		}
		equipment = types.JSONText(raw)
	}

	booking := &models.Booking{
		LabID:       req.LabID,
		SectionID:   sectionID,
		UserID:      actor.UserID,
		BookingDate: date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Purpose:     req.Purpose,
		Equipment:   equipment,
		Status:      status,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	s.metrics.RecordBookingCreated(string(status))
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("lab_id", booking.LabID),
		zap.String("status", string(status)),
		zap.Bool("conflict", conflict),
	)

	return &dto.BookingResponse{Booking: *booking, Conflict: conflict}, nil
}

// Get loads one booking.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// List returns bookings matching the filter.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return bookings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateStatus performs an administrative status override. Transitions into
// interval-holding states re-run the conflict check against all other rows
// before the write; a failed check refuses the transition.
func (s *BookingService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, target models.BookingStatus) (*models.Booking, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may override booking status")
	}
	if !models.ValidBookingStatus(target) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown booking status %q", target))
	}

	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(booking.Status, target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition booking from %q to %q", booking.Status, target))
	}

	if target == models.BookingStatusBooked || target == models.BookingStatusApprovedByAdmin {
		conflict, err := s.HasConflict(ctx, booking.LabID, booking.BookingDate, booking.StartTime, booking.EndTime, booking.ID)
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, appErrors.Clone(appErrors.ErrConflict, "interval now conflicts with another booking; transition refused")
		}
	}

	if err := s.bookings.UpdateStatus(ctx, nil, id, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}

	s.logger.Info("booking status overridden",
		zap.String("booking_id", id),
		zap.String("from", string(booking.Status)),
		zap.String("to", string(target)),
	)

	booking.Status = target
	return booking, nil
}

// Cancel marks a booking cancelled. Only the owning user or an admin may
// cancel; the row is never deleted.
func (s *BookingService) Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*models.Booking, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleAdmin && booking.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booking owner or an admin may cancel")
	}

	if !models.CanTransition(booking.Status, models.BookingStatusCancelled) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot cancel a booking in status %q", booking.Status))
	}

	if err := s.bookings.UpdateStatus(ctx, nil, id, models.BookingStatusCancelled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}

	s.logger.Info("booking cancelled", zap.String("booking_id", id), zap.String("by", actor.UserID))

	booking.Status = models.BookingStatusCancelled
	return booking, nil
}
