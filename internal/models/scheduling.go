package models

// BookingCandidate is an awaiting-scheduling booking joined to its owning
// user and (when present) its course section. It feeds the solver request
// builder.
type BookingCandidate struct {
	Booking
	OwnerRole   UserRole `db:"owner_role"`
	CourseCode  *string  `db:"course_code"`
	SectionName *string  `db:"section_name"`
	Batch       *string  `db:"batch"`
	BatchSize   *int     `db:"batch_size"`
}

// CourseSection derives the candidate's course-section identity, falling
// back to the booking id for ad hoc bookings without a section.
func (c BookingCandidate) CourseSection() string {
	if c.CourseCode == nil || *c.CourseCode == "" {
		return "adhoc-" + c.ID
	}
	section := Section{CourseCode: *c.CourseCode}
	if c.SectionName != nil {
		section.Name = *c.SectionName
	}
	return section.CourseSection()
}

// StudentBatch derives the candidate's batch identity. Ad hoc bookings get
// a per-booking batch so they never constrain each other.
func (c BookingCandidate) StudentBatch() string {
	if c.Batch == nil || *c.Batch == "" {
		return "batch-" + c.ID
	}
	return *c.Batch
}
