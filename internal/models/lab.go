package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Lab describes a bookable laboratory. Labs are read-only inputs to a
// scheduling run.
type Lab struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Room      string         `db:"room" json:"room"`
	LabType   string         `db:"lab_type" json:"lab_type"`
	Location  string         `db:"location" json:"location"`
	Equipment types.JSONText `db:"equipment" json:"equipment,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
