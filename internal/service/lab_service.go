package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type labRepository interface {
	List(ctx context.Context) ([]models.Lab, error)
	FindByID(ctx context.Context, id string) (*models.Lab, error)
}

// LabService exposes read access to laboratories.
type LabService struct {
	repo   labRepository
	logger *zap.Logger
}

// NewLabService constructs a LabService instance.
func NewLabService(repo labRepository, logger *zap.Logger) *LabService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabService{repo: repo, logger: logger}
}

// List returns all labs.
func (s *LabService) List(ctx context.Context) ([]models.Lab, error) {
	labs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list labs")
	}
	return labs, nil
}

// Get loads one lab.
func (s *LabService) Get(ctx context.Context, id string) (*models.Lab, error) {
	lab, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch lab")
	}
	return lab, nil
}
