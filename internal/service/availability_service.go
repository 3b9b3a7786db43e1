package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/dto"
	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type availabilityRepository interface {
	ListByFaculty(ctx context.Context, facultyID string) ([]string, error)
	Replace(ctx context.Context, facultyID string, slotIDs []string) error
}

type availabilityUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type availabilitySlotReader interface {
	Catalog(ctx context.Context) (models.SlotCatalog, error)
}

const availabilityCacheTTL = 10 * time.Minute

// AvailabilityService manages per-faculty teaching availability. The stored
// set is advisory input to scheduling runs; an empty set means the faculty is
// available in every catalog slot.
type AvailabilityService struct {
	repo      availabilityRepository
	users     availabilityUserReader
	slots     availabilitySlotReader
	cache     *repository.CacheRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService instance.
func NewAvailabilityService(
	repo availabilityRepository,
	users availabilityUserReader,
	slots availabilitySlotReader,
	cache *repository.CacheRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AvailabilityService{repo: repo, users: users, slots: slots, cache: cache, validator: validate, logger: logger}
}

func availabilityCacheKey(facultyID string) string {
	return "availability:" + facultyID
}

// Get returns the availability set of one faculty. Faculty may read their own
// set; admins may read anyone's.
func (s *AvailabilityService) Get(ctx context.Context, actor *models.JWTClaims, facultyID string) (*dto.AvailabilityResponse, error) {
	if actor.Role != models.RoleAdmin && actor.UserID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot read another user's availability")
	}

	if _, err := s.findFaculty(ctx, facultyID); err != nil {
		return nil, err
	}

	var cached dto.AvailabilityResponse
	if err := s.cache.Get(ctx, availabilityCacheKey(facultyID), &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("availability cache read failed", zap.String("faculty_id", facultyID), zap.Error(err))
	}

	slotIDs, err := s.repo.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if slotIDs == nil {
		slotIDs = []string{}
	}

	resp := &dto.AvailabilityResponse{FacultyID: facultyID, TimeSlotIDs: slotIDs}
	if err := s.cache.Set(ctx, availabilityCacheKey(facultyID), resp, availabilityCacheTTL); err != nil {
		s.logger.Warn("availability cache write failed", zap.String("faculty_id", facultyID), zap.Error(err))
	}
	return resp, nil
}

// Replace swaps a faculty's availability set. Every slot id must exist in the
// catalog; duplicates collapse to one row.
func (s *AvailabilityService) Replace(ctx context.Context, actor *models.JWTClaims, facultyID string, req dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	if actor.Role != models.RoleAdmin && actor.UserID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot modify another user's availability")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	user, err := s.findFaculty(ctx, facultyID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleFaculty {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availability applies to faculty accounts only")
	}

	catalog, err := s.slots.Catalog(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time-slot catalog")
	}

	seen := make(map[string]struct{}, len(req.TimeSlotIDs))
	slotIDs := make([]string, 0, len(req.TimeSlotIDs))
	for _, id := range req.TimeSlotIDs {
		if _, ok := catalog.ByID(id); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown time slot %q", id))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		slotIDs = append(slotIDs, id)
	}

	if err := s.repo.Replace(ctx, facultyID, slotIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}

	if err := s.cache.Delete(ctx, availabilityCacheKey(facultyID)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("faculty_id", facultyID), zap.Error(err))
	}

	s.logger.Info("faculty availability replaced",
		zap.String("faculty_id", facultyID),
		zap.Int("slot_count", len(slotIDs)),
	)
	return &dto.AvailabilityResponse{FacultyID: facultyID, TimeSlotIDs: slotIDs}, nil
}

func (s *AvailabilityService) findFaculty(ctx context.Context, facultyID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, facultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return user, nil
}
