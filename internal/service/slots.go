package service

import "roomsheet/internal/models"

// BuildTimeSlots returns the half-hour grid the booking form offers,
// 08:00 through 18:00. The grid is a menu, not a constraint: the sheet
// holds whatever times a human typed, and parsed rows keep them.
func BuildTimeSlots() []models.TimeSlot {
	first := models.SlotGridStartHour * 60
	last := models.SlotGridEndHour * 60
	slots := make([]models.TimeSlot, 0, (last-first)/models.SlotStepMinutes)
	for m := first; m < last; m += models.SlotStepMinutes {
		n := m + models.SlotStepMinutes
		slots = append(slots, models.TimeSlot{
			Start: models.Clock{Hour: m / 60, Minute: m % 60},
			End:   models.Clock{Hour: n / 60, Minute: n % 60},
		})
	}
	return slots
}
