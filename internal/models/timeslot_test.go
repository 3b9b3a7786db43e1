package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() SlotCatalog {
	return NewSlotCatalog([]TimeSlot{
		{ID: "TS1", Display: "09:00 - 10:00", StartTime: "09:00", EndTime: "10:00", SortOrder: 1},
		{ID: "TS2", Display: "10:00 - 11:00", StartTime: "10:00", EndTime: "11:00", SortOrder: 2},
		{ID: "TS3", Display: "11:00 - 12:00", StartTime: "11:00", EndTime: "12:00", SortOrder: 3},
	})
}

func TestSlotCatalogLookup(t *testing.T) {
	catalog := testCatalog()

	require.Equal(t, 3, catalog.Len())
	assert.Equal(t, []string{"TS1", "TS2", "TS3"}, catalog.IDs())

	slot, ok := catalog.ByID("TS2")
	require.True(t, ok)
	assert.Equal(t, "10:00", slot.StartTime)

	_, ok = catalog.ByID("TS9")
	assert.False(t, ok)
}

func TestSlotCatalogDurationSlots(t *testing.T) {
	catalog := testCatalog()

	assert.Equal(t, 60, catalog.SlotMinutes())
	assert.Equal(t, 1, catalog.DurationSlots("09:00", "10:00"))
	assert.Equal(t, 2, catalog.DurationSlots("09:00", "11:00"))
	// Partial slots round up.
	assert.Equal(t, 2, catalog.DurationSlots("09:00", "10:30"))
	// Degenerate intervals still occupy one slot.
	assert.Equal(t, 1, catalog.DurationSlots("09:00", "09:00"))
	assert.Equal(t, 1, catalog.DurationSlots("bogus", "10:00"))
}

func TestSlotCatalogImmutability(t *testing.T) {
	source := []TimeSlot{{ID: "TS1", StartTime: "09:00", EndTime: "10:00"}}
	catalog := NewSlotCatalog(source)

	source[0].ID = "mutated"
	slots := catalog.Slots()
	assert.Equal(t, "TS1", slots[0].ID)

	slots[0].ID = "mutated-again"
	again := catalog.Slots()
	assert.Equal(t, "TS1", again[0].ID)
}
