package models

import "time"

// Section is one section of a course. Two sections of the same course are
// independent scheduling units.
type Section struct {
	ID         string    `db:"id" json:"id"`
	CourseCode string    `db:"course_code" json:"course_code"`
	Name       string    `db:"name" json:"name"`
	Batch      string    `db:"batch" json:"batch"`
	Size       int       `db:"size" json:"size"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CourseSection derives the canonical course-section identity used by the
// scheduling contract. Sibling sections of one course must yield distinct
// values.
func (s Section) CourseSection() string {
	if s.Name == "" {
		return s.CourseCode
	}
	return s.CourseCode + "-" + s.Name
}
