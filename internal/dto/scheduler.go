package dto

// The types in this file form the wire contract with the external
// scheduling solver. The request document is written to the solver's stdin
// as a single JSON value; the result document is read back from its stdout.

// SolverLab is the lab view handed to the solver.
type SolverLab struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Type     string `json:"type"`
}

// LabSessionRequest is one pending session awaiting placement.
type LabSessionRequest struct {
	RequestID         string   `json:"requestId"`
	CourseSection     string   `json:"courseSection"`
	FacultyID         string   `json:"facultyId"`
	StudentBatch      string   `json:"studentBatch"`
	BatchSize         int      `json:"batchSize,omitempty"`
	DurationSlots     int      `json:"durationSlots"`
	PreferredLabID    string   `json:"preferredLabId,omitempty"`
	RequiredLabType   string   `json:"requiredLabType,omitempty"`
	RequiredEquipment []string `json:"requiredEquipment,omitempty"`
}

// SolverTimeSlot is one entry of the slot catalog as sent to the solver.
type SolverTimeSlot struct {
	ID        string `json:"id"`
	Display   string `json:"display"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// SchedulingRequest is the full solver input document. Built fresh per run,
// never persisted.
type SchedulingRequest struct {
	Labs                []SolverLab          `json:"labs"`
	LabSessionRequests  []LabSessionRequest  `json:"labSessionRequests"`
	TimeSlots           []SolverTimeSlot     `json:"timeSlots"`
	FacultyAvailability map[string][]string  `json:"facultyAvailability"`
}

// ScheduledBooking is one placement decided by the solver.
type ScheduledBooking struct {
	RequestID          string `json:"requestId"`
	CourseSection      string `json:"courseSection"`
	AssignedLabID      string `json:"assignedLabId"`
	AssignedDate       string `json:"assignedDate"`
	AssignedTimeSlotID string `json:"assignedTimeSlotId"`
	FacultyID          string `json:"facultyId"`
	StudentBatch       string `json:"studentBatch"`
	Purpose            string `json:"purpose"`
}

// UnscheduledRequest names a request the solver could not place.
type UnscheduledRequest struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason"`
}

// SchedulingResult is the full solver output document.
type SchedulingResult struct {
	NewlyScheduledBookings []ScheduledBooking   `json:"newlyScheduledBookings"`
	UnscheduledRequests    []UnscheduledRequest `json:"unscheduledRequests"`
}

// ScheduleRunSummary reports the outcome of one reconciled scheduling run.
type ScheduleRunSummary struct {
	Booked           int      `json:"booked"`
	SkippedConflicts int      `json:"skipped_conflicts"`
	FailedBySolver   int      `json:"failed_by_solver"`
	BookingIDs       []string `json:"booking_ids"`
	Note             string   `json:"note,omitempty"`
}

// ScheduleRunResponse is the admin-facing result of a scheduling run.
type ScheduleRunResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Summary *ScheduleRunSummary `json:"summary,omitempty"`
}
