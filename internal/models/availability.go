package models

import "time"

// FacultyAvailability marks one time slot a faculty member is available to
// teach in. Absence of any rows for a faculty means the full catalog.
type FacultyAvailability struct {
	FacultyID  string    `db:"faculty_id" json:"faculty_id"`
	TimeSlotID string    `db:"time_slot_id" json:"time_slot_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
