package models

import "time"

type Booking struct {
	ID      string    `json:"id"`
	RoomID  string    `json:"room_id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Row     int       `json:"row"`
	IsFixed bool      `json:"is_fixed"`
}

// Date returns the booking's calendar day at midnight in the booking's own
// location.
func (b Booking) Date() time.Time {
	return time.Date(b.Start.Year(), b.Start.Month(), b.Start.Day(), 0, 0, 0, 0, b.Start.Location())
}

func (b Booking) SameDate(other Booking) bool {
	y1, m1, d1 := b.Start.Date()
	y2, m2, d2 := other.Start.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

type FixedSchedule struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	Staff     string `json:"staff"`
	Start     Clock  `json:"start_time"`
	End       Clock  `json:"end_time"`
	DayOfWeek int    `json:"day_of_week"`
	Row       int    `json:"row"`
	Slot      string `json:"slot"`
}

type TimeSlot struct {
	Start Clock `json:"start_time"`
	End   Clock `json:"end_time"`
}

// BookingRequest is the write payload for one-off bookings. Date is
// "2006-01-02", the times are "H:mm" strings as a human would type them.
type BookingRequest struct {
	RoomID    string `json:"room_id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// FixedScheduleRequest is the write payload for recurring schedules.
type FixedScheduleRequest struct {
	RoomID    string `json:"room_id"`
	Staff     string `json:"staff"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
