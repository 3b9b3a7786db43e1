package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// BookingStatus enumerates the lifecycle states of a reservation.
type BookingStatus string

const (
	BookingStatusPending              BookingStatus = "pending"
	BookingStatusBooked               BookingStatus = "booked"
	BookingStatusPendingAdminApproval BookingStatus = "pending-admin-approval"
	BookingStatusApprovedByAdmin      BookingStatus = "approved-by-admin"
	BookingStatusRejected             BookingStatus = "rejected"
	BookingStatusRejectedByAdmin      BookingStatus = "rejected-by-admin"
	BookingStatusCancelled            BookingStatus = "cancelled"
	BookingStatusSchedulingFailed     BookingStatus = "scheduling_failed"
)

// Booking is a reservation of a lab for a date and time interval. Rows are
// never deleted; cancellation and rejection are status changes so the history
// stays auditable.
type Booking struct {
	ID          string         `db:"id" json:"id"`
	LabID       string         `db:"lab_id" json:"lab_id"`
	SectionID   *string        `db:"section_id" json:"section_id,omitempty"`
	UserID      string         `db:"user_id" json:"user_id"`
	BookingDate time.Time      `db:"booking_date" json:"booking_date"`
	StartTime   string         `db:"start_time" json:"start_time"`
	EndTime     string         `db:"end_time" json:"end_time"`
	Purpose     string         `db:"purpose" json:"purpose"`
	Equipment   types.JSONText `db:"equipment" json:"equipment,omitempty"`
	Status      BookingStatus  `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// BookingFilter describes query params for listing bookings.
type BookingFilter struct {
	LabID    string
	UserID   string
	Date     string
	Status   string
	Page     int
	PageSize int
}

var validBookingStatuses = map[BookingStatus]struct{}{
	BookingStatusPending:              {},
	BookingStatusBooked:               {},
	BookingStatusPendingAdminApproval: {},
	BookingStatusApprovedByAdmin:      {},
	BookingStatusRejected:             {},
	BookingStatusRejectedByAdmin:      {},
	BookingStatusCancelled:            {},
	BookingStatusSchedulingFailed:     {},
}

// ValidBookingStatus reports whether s names a known status.
func ValidBookingStatus(s BookingStatus) bool {
	_, ok := validBookingStatuses[s]
	return ok
}

// TerminalBookingStatus reports whether s is an end state. Nothing leaves a
// terminal status, not even cancellation.
func TerminalBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingStatusCancelled, BookingStatusRejected, BookingStatusRejectedByAdmin, BookingStatusSchedulingFailed:
		return true
	}
	return false
}

// BlocksInterval reports whether a row in status s still holds its
// [start,end) interval for conflict purposes. Terminal rejections free the
// interval the same way cancellation does.
func BlocksInterval(s BookingStatus) bool {
	switch s {
	case BookingStatusPending, BookingStatusBooked, BookingStatusPendingAdminApproval, BookingStatusApprovedByAdmin:
		return true
	}
	return false
}

// AwaitingScheduling reports whether a row in status s is eligible input for
// a bulk scheduling run.
func AwaitingScheduling(s BookingStatus) bool {
	return s == BookingStatusPending || s == BookingStatusPendingAdminApproval
}

// bookingTransitions is the allowed edge set of the status machine,
// excluding the universal "-> cancelled" edge handled in CanTransition.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {
		BookingStatusBooked,
		BookingStatusPendingAdminApproval,
		BookingStatusRejected,
		BookingStatusRejectedByAdmin,
		BookingStatusSchedulingFailed,
	},
	BookingStatusPendingAdminApproval: {
		BookingStatusApprovedByAdmin,
		BookingStatusBooked,
		BookingStatusRejectedByAdmin,
		BookingStatusSchedulingFailed,
	},
	BookingStatusApprovedByAdmin: {
		BookingStatusBooked,
	},
	BookingStatusBooked: {},
}

// CanTransition reports whether the status machine permits from -> to. Any
// non-terminal state may move to cancelled.
func CanTransition(from, to BookingStatus) bool {
	if !ValidBookingStatus(from) || !ValidBookingStatus(to) {
		return false
	}
	if from == to {
		return false
	}
	if TerminalBookingStatus(from) {
		return false
	}
	if to == BookingStatusCancelled {
		return true
	}
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
