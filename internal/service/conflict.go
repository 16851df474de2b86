package service

import "roomsheet/internal/models"

// Conflict detection treats every interval as half-open: [s1,e1) and
// [s2,e2) collide iff s1 < e2 && s2 < e1, so back-to-back meetings that
// share a boundary minute never clash.

// FindBookingConflict returns the first existing booking in the same room
// on the same calendar day whose interval overlaps the candidate, or nil.
func FindBookingConflict(candidate models.Booking, existing []models.Booking) *models.Booking {
	for i := range existing {
		b := existing[i]
		if b.RoomID != candidate.RoomID || !b.SameDate(candidate) {
			continue
		}
		if models.Overlaps(candidate.Start, candidate.End, b.Start, b.End) {
			return &existing[i]
		}
	}
	return nil
}

// FindFixedConflictForBooking returns the recurring schedule that blocks
// the candidate booking. A schedule blocks when it lives in the same room,
// recurs on the booking's weekday and overlaps its time of day.
func FindFixedConflictForBooking(candidate models.Booking, schedules []models.FixedSchedule) *models.FixedSchedule {
	weekday := int(candidate.Start.Weekday())
	start, end := models.ClockOf(candidate.Start), models.ClockOf(candidate.End)
	for i := range schedules {
		s := schedules[i]
		if s.RoomID != candidate.RoomID || s.DayOfWeek != weekday {
			continue
		}
		if models.ClocksOverlap(start, end, s.Start, s.End) {
			return &schedules[i]
		}
	}
	return nil
}

// ConflictDetail identifies whichever party blocked a fixed-schedule
// write; exactly one field is set.
type ConflictDetail struct {
	Booking  *models.Booking
	Schedule *models.FixedSchedule
}

// FindFixedScheduleConflict checks a candidate recurring schedule against
// the month's one-off bookings and the other schedules on the same room.
// The candidate repeats every day, so any time-of-day overlap counts and
// dates never enter the comparison.
func FindFixedScheduleConflict(candidate models.FixedSchedule, bookings []models.Booking, schedules []models.FixedSchedule) *ConflictDetail {
	for i := range bookings {
		b := bookings[i]
		if b.RoomID != candidate.RoomID {
			continue
		}
		if models.ClocksOverlap(candidate.Start, candidate.End, models.ClockOf(b.Start), models.ClockOf(b.End)) {
			return &ConflictDetail{Booking: &bookings[i]}
		}
	}
	for i := range schedules {
		s := schedules[i]
		if s.RoomID != candidate.RoomID {
			continue
		}
		if models.ClocksOverlap(candidate.Start, candidate.End, s.Start, s.End) {
			return &ConflictDetail{Schedule: &schedules[i]}
		}
	}
	return nil
}

func excludeBookingRows(bookings []models.Booking, rows []int) []models.Booking {
	if len(rows) == 0 {
		return bookings
	}
	drop := make(map[int]bool, len(rows))
	for _, r := range rows {
		drop[r] = true
	}
	kept := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if !drop[b.Row] {
			kept = append(kept, b)
		}
	}
	return kept
}

func excludeScheduleRow(schedules []models.FixedSchedule, row int) []models.FixedSchedule {
	if row <= 0 {
		return schedules
	}
	kept := make([]models.FixedSchedule, 0, len(schedules))
	for _, s := range schedules {
		if s.Row != row {
			kept = append(kept, s)
		}
	}
	return kept
}
