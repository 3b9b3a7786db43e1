package models

import "time"

// TimeSlot is one entry of the fixed slot catalog. Times are stored as
// zero-padded "HH:MM" strings so lexicographic and SQL comparison agree.
type TimeSlot struct {
	ID        string `db:"id" json:"id"`
	Display   string `db:"display" json:"display"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
}

// SlotCatalog is the immutable, ordered time-slot table. It is built once
// at startup and injected into the components that need it instead of
// living as package-level state.
type SlotCatalog struct {
	slots []TimeSlot
	byID  map[string]TimeSlot
}

// NewSlotCatalog builds a catalog from ordered rows.
func NewSlotCatalog(slots []TimeSlot) SlotCatalog {
	byID := make(map[string]TimeSlot, len(slots))
	for _, slot := range slots {
		byID[slot.ID] = slot
	}
	copied := make([]TimeSlot, len(slots))
	copy(copied, slots)
	return SlotCatalog{slots: copied, byID: byID}
}

// Slots returns a copy of the ordered catalog.
func (c SlotCatalog) Slots() []TimeSlot {
	out := make([]TimeSlot, len(c.slots))
	copy(out, c.slots)
	return out
}

// ByID looks up a slot by its identifier.
func (c SlotCatalog) ByID(id string) (TimeSlot, bool) {
	slot, ok := c.byID[id]
	return slot, ok
}

// IDs returns the catalog's slot identifiers in catalog order.
func (c SlotCatalog) IDs() []string {
	ids := make([]string, len(c.slots))
	for i, slot := range c.slots {
		ids[i] = slot.ID
	}
	return ids
}

// Len returns the number of catalog entries.
func (c SlotCatalog) Len() int {
	return len(c.slots)
}

// SlotMinutes is the length of one catalog slot. Catalog entries are
// uniform, so the first entry is representative.
func (c SlotCatalog) SlotMinutes() int {
	if len(c.slots) == 0 {
		return 0
	}
	return intervalMinutes(c.slots[0].StartTime, c.slots[0].EndTime)
}

// DurationSlots converts a [start,end) interval into whole slot units,
// rounding up and never reporting less than one slot.
func (c SlotCatalog) DurationSlots(startTime, endTime string) int {
	slotLen := c.SlotMinutes()
	if slotLen <= 0 {
		return 1
	}
	minutes := intervalMinutes(startTime, endTime)
	if minutes <= 0 {
		return 1
	}
	units := (minutes + slotLen - 1) / slotLen
	if units < 1 {
		units = 1
	}
	return units
}

func intervalMinutes(startTime, endTime string) int {
	start, err := time.Parse("15:04", startTime)
	if err != nil {
		return 0
	}
	end, err := time.Parse("15:04", endTime)
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Minutes())
}
