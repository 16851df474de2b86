package models

import "time"

const (
	// GracePeriod is how far in the past a booking start may lie and still
	// be accepted, so a meeting that just began can be booked retroactively.
	GracePeriod = 5 * time.Minute

	// The bookable day offered by the UI slot grid. The sheet itself accepts
	// any time a human types in.
	SlotGridStartHour = 8
	SlotGridEndHour   = 18
	SlotStepMinutes   = 30
)
