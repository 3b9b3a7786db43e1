package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-booking-api/internal/models"
)

const labColumns = "id, name, capacity, room, lab_type, location, equipment, created_at, updated_at"

// LabRepository provides read access to laboratories.
type LabRepository struct {
	db *sqlx.DB
}

// NewLabRepository creates a new lab repository.
func NewLabRepository(db *sqlx.DB) *LabRepository {
	return &LabRepository{db: db}
}

// List returns all labs ordered by name.
func (r *LabRepository) List(ctx context.Context) ([]models.Lab, error) {
	query := fmt.Sprintf("SELECT %s FROM labs ORDER BY name", labColumns)
	var labs []models.Lab
	if err := r.db.SelectContext(ctx, &labs, query); err != nil {
		return nil, fmt.Errorf("list labs: %w", err)
	}
	return labs, nil
}

// FindByID loads a lab by id.
func (r *LabRepository) FindByID(ctx context.Context, id string) (*models.Lab, error) {
	query := fmt.Sprintf("SELECT %s FROM labs WHERE id = $1", labColumns)
	var lab models.Lab
	if err := r.db.GetContext(ctx, &lab, query, id); err != nil {
		return nil, err
	}
	return &lab, nil
}
