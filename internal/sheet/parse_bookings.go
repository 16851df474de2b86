package sheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"roomsheet/internal/models"
)

// ParseBookings interprets the booking table below the header row. Rows
// that fail any check are skipped silently: a hand-edited sheet always
// contains section labels, blank separators and half-filled rows, and
// none of those should break the listing. A single physical row can
// yield up to four bookings (two rooms, morning and afternoon).
func ParseBookings(matrix [][]string, year int, month time.Month, rooms []models.Room, loc *time.Location) []models.Booking {
	headerRow := findBookingHeader(matrix)

	var bookings []models.Booking
	for i := headerRow; i < len(matrix); i++ {
		row := matrix[i]
		sheetRow := i + 1

		day, err := strconv.Atoi(strings.TrimSpace(cellAt(row, colDate)))
		if err != nil || day < 1 || day > 31 {
			continue
		}
		date := time.Date(year, month, day, 0, 0, 0, 0, loc)
		if date.Month() != month {
			// day 30 in February normalizes into March; treat as junk
			continue
		}

		title := strings.TrimSpace(cellAt(row, colStaff))
		for idx, room := range rooms {
			if !roomAssigned(cellAt(row, colRoomA+idx), room.Name) {
				continue
			}
			for _, slot := range []string{models.SlotMorning, models.SlotAfternoon} {
				startCol, endCol := slotColumns(slot)
				start, errStart := models.ParseClock(cellAt(row, startCol))
				end, errEnd := models.ParseClock(cellAt(row, endCol))
				if errStart != nil || errEnd != nil || !start.Before(end) {
					continue
				}
				bookings = append(bookings, models.Booking{
					ID:     models.BookingID(room.ID, sheetRow, start, end),
					RoomID: room.ID,
					Title:  title,
					Start:  start.At(date),
					End:    end.At(date),
					Row:    sheetRow,
				})
			}
		}
	}
	return bookings
}

// MaterializeFixedSchedules projects recurring entries into concrete
// bookings for the viewed month. Only the month containing now produces
// any, and only from today forward: past days show what the grid actually
// recorded, and future months would repeat every weekly entry four or
// five times before anyone confirmed them.
func MaterializeFixedSchedules(schedules []models.FixedSchedule, year int, month time.Month, now time.Time) []models.Booking {
	if year != now.Year() || month != now.Month() {
		return nil
	}

	loc := now.Location()
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()

	var bookings []models.Booking
	for day := now.Day(); day <= lastDay; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, loc)
		weekday := int(date.Weekday())
		for _, s := range schedules {
			if s.DayOfWeek != weekday {
				continue
			}
			bookings = append(bookings, models.Booking{
				ID:      fmt.Sprintf("%s_d%02d", s.ID, day),
				RoomID:  s.RoomID,
				Title:   s.Staff,
				Start:   s.Start.At(date),
				End:     s.End.At(date),
				Row:     s.Row,
				IsFixed: true,
			})
		}
	}
	return bookings
}
