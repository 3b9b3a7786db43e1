package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{"pending to booked", BookingStatusPending, BookingStatusBooked, true},
		{"pending to escalation", BookingStatusPending, BookingStatusPendingAdminApproval, true},
		{"pending to rejected", BookingStatusPending, BookingStatusRejected, true},
		{"pending to scheduling failed", BookingStatusPending, BookingStatusSchedulingFailed, true},
		{"pending to approved directly", BookingStatusPending, BookingStatusApprovedByAdmin, false},
		{"escalation to approved", BookingStatusPendingAdminApproval, BookingStatusApprovedByAdmin, true},
		{"escalation to booked", BookingStatusPendingAdminApproval, BookingStatusBooked, true},
		{"escalation to admin rejection", BookingStatusPendingAdminApproval, BookingStatusRejectedByAdmin, true},
		{"escalation to plain rejected", BookingStatusPendingAdminApproval, BookingStatusRejected, false},
		{"approved to booked", BookingStatusApprovedByAdmin, BookingStatusBooked, true},
		{"approved back to escalation", BookingStatusApprovedByAdmin, BookingStatusPendingAdminApproval, false},
		{"booked to pending", BookingStatusBooked, BookingStatusPending, false},
		{"self transition", BookingStatusPending, BookingStatusPending, false},
		{"unknown target", BookingStatusPending, BookingStatus("archived"), false},
		{"unknown source", BookingStatus("archived"), BookingStatusBooked, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestCanTransitionCancellation(t *testing.T) {
	nonTerminal := []BookingStatus{
		BookingStatusPending,
		BookingStatusBooked,
		BookingStatusPendingAdminApproval,
		BookingStatusApprovedByAdmin,
	}
	for _, from := range nonTerminal {
		assert.True(t, CanTransition(from, BookingStatusCancelled), "expected %s -> cancelled", from)
	}

	terminal := []BookingStatus{
		BookingStatusCancelled,
		BookingStatusRejected,
		BookingStatusRejectedByAdmin,
		BookingStatusSchedulingFailed,
	}
	for _, from := range terminal {
		for status := range validBookingStatuses {
			assert.False(t, CanTransition(from, status), "expected no transition out of %s", from)
		}
	}
}

func TestBlocksInterval(t *testing.T) {
	holding := []BookingStatus{
		BookingStatusPending,
		BookingStatusBooked,
		BookingStatusPendingAdminApproval,
		BookingStatusApprovedByAdmin,
	}
	for _, s := range holding {
		assert.True(t, BlocksInterval(s), "expected %s to hold its interval", s)
	}

	freeing := []BookingStatus{
		BookingStatusCancelled,
		BookingStatusRejected,
		BookingStatusRejectedByAdmin,
		BookingStatusSchedulingFailed,
	}
	for _, s := range freeing {
		assert.False(t, BlocksInterval(s), "expected %s to free its interval", s)
	}
}

func TestAwaitingScheduling(t *testing.T) {
	assert.True(t, AwaitingScheduling(BookingStatusPending))
	assert.True(t, AwaitingScheduling(BookingStatusPendingAdminApproval))
	assert.False(t, AwaitingScheduling(BookingStatusBooked))
	assert.False(t, AwaitingScheduling(BookingStatusApprovedByAdmin))
	assert.False(t, AwaitingScheduling(BookingStatusCancelled))
}
