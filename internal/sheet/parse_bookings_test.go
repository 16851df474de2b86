package sheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roomsheet/internal/models"
)

func septemberMatrix() [][]string {
	return [][]string{
		{"SEPTEMBER 2026"},
		{"", "", "Team Happy", "Nha Trang", "", "9:00", "9:30", "", ""},
		{"", "", "", "", "", "", "", "", ""},
		{"DATE", "DAY", "BOOKING STAFF", "MEETING ROOM NHA TRANG", "MEETING ROOM DA LAT", "START", "END", "START", "END"},
		{"1", "Tuesday", "Design sync", "Nha Trang", "", "9:00", "9:30", "", ""},
		{"1", "Tuesday", "Standup", "", "Da Lat", "", "", "14:00", "15:00"},
		{"3", "Thursday", "Retro", "TRUE", "", "10:00", "11:30", "", ""},
	}
}

// tableWith builds a matrix with the header at row 4 and the given data
// rows after it.
func tableWith(rows ...[]string) [][]string {
	matrix := [][]string{
		{"SEPTEMBER 2026"},
		nil,
		nil,
		{"DATE", "DAY", "BOOKING STAFF", "MEETING ROOM NHA TRANG", "MEETING ROOM DA LAT"},
	}
	return append(matrix, rows...)
}

func TestParseBookings(t *testing.T) {
	got := ParseBookings(septemberMatrix(), 2026, time.September, models.DefaultRooms(), time.UTC)
	require.Len(t, got, 3)

	require.Equal(t, "nha-trang_5_0900_0930", got[0].ID)
	require.Equal(t, "nha-trang", got[0].RoomID)
	require.Equal(t, "Design sync", got[0].Title)
	require.Equal(t, time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC), got[0].Start)
	require.Equal(t, time.Date(2026, time.September, 1, 9, 30, 0, 0, time.UTC), got[0].End)
	require.Equal(t, 5, got[0].Row)
	require.False(t, got[0].IsFixed)

	require.Equal(t, "da-lat_6_1400_1500", got[1].ID)
	require.Equal(t, "da-lat", got[1].RoomID)
	require.Equal(t, "Standup", got[1].Title)

	require.Equal(t, "nha-trang_7_1000_1130", got[2].ID)
	require.Equal(t, "Retro", got[2].Title)
}

func TestParseBookingsSkipsJunkRows(t *testing.T) {
	matrix := tableWith(
		[]string{"", "Tuesday", "No date", "TRUE", "", "9:00", "9:30", "", ""},
		[]string{"x", "Tuesday", "Bad date", "TRUE", "", "9:00", "9:30", "", ""},
		[]string{"32", "Tuesday", "Out of range", "TRUE", "", "9:00", "9:30", "", ""},
		[]string{"2", "Wednesday", "No room", "", "", "9:00", "9:30", "", ""},
		[]string{"2", "Wednesday", "Bad minute", "TRUE", "", "9:60", "10:00", "", ""},
		[]string{"2", "Wednesday", "Zero length", "TRUE", "", "10:00", "10:00", "", ""},
		[]string{"2", "Wednesday", "Backwards", "TRUE", "", "11:00", "10:00", "", ""},
		[]string{"2", "Wednesday", "Half a pair", "TRUE", "", "9:00", "", "", ""},
	)
	require.Empty(t, ParseBookings(matrix, 2026, time.September, models.DefaultRooms(), time.UTC))
}

func TestParseBookingsRejectsOverflowDay(t *testing.T) {
	matrix := tableWith(
		[]string{"30", "Monday", "Ghost", "TRUE", "", "9:00", "9:30", "", ""},
	)
	require.Empty(t, ParseBookings(matrix, 2026, time.February, models.DefaultRooms(), time.UTC))
}

func TestParseBookingsMultipleSlotsAndRooms(t *testing.T) {
	matrix := tableWith(
		[]string{"10", "Thursday", "All day", "Nha Trang", "Da Lat", "9:00", "12:00", "13:00", "17:00"},
	)
	got := ParseBookings(matrix, 2026, time.September, models.DefaultRooms(), time.UTC)
	require.Len(t, got, 4)

	ids := make([]string, 0, len(got))
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	require.Equal(t, []string{
		"nha-trang_5_0900_1200",
		"nha-trang_5_1300_1700",
		"da-lat_5_0900_1200",
		"da-lat_5_1300_1700",
	}, ids)
}

func TestMaterializeFixedSchedules(t *testing.T) {
	var schedules []models.FixedSchedule
	for dow := 0; dow < 7; dow++ {
		schedules = append(schedules, models.FixedSchedule{
			ID:        "fs_2_nha-trang_am",
			RoomID:    "nha-trang",
			Staff:     "Team Happy",
			Start:     models.Clock{Hour: 9},
			End:       models.Clock{Hour: 9, Minute: 30},
			DayOfWeek: dow,
			Row:       2,
			Slot:      models.SlotMorning,
		})
	}

	now := time.Date(2026, time.September, 28, 10, 0, 0, 0, time.UTC)
	got := MaterializeFixedSchedules(schedules, 2026, time.September, now)

	require.Len(t, got, 3)
	require.Equal(t, "fs_2_nha-trang_am_d28", got[0].ID)
	require.True(t, got[0].IsFixed)
	require.Equal(t, "Team Happy", got[0].Title)
	require.Equal(t, time.Date(2026, time.September, 28, 9, 0, 0, 0, time.UTC), got[0].Start)
	require.Equal(t, time.Date(2026, time.September, 28, 9, 30, 0, 0, time.UTC), got[0].End)
	require.Equal(t, "fs_2_nha-trang_am_d29", got[1].ID)
	require.Equal(t, "fs_2_nha-trang_am_d30", got[2].ID)
}

func TestMaterializeOnlyForCurrentMonth(t *testing.T) {
	schedules := []models.FixedSchedule{{
		ID:        "fs_2_nha-trang_am",
		RoomID:    "nha-trang",
		Start:     models.Clock{Hour: 9},
		End:       models.Clock{Hour: 10},
		DayOfWeek: 3,
	}}
	now := time.Date(2026, time.September, 10, 10, 0, 0, 0, time.UTC)

	require.Empty(t, MaterializeFixedSchedules(schedules, 2026, time.October, now))
	require.Empty(t, MaterializeFixedSchedules(schedules, 2026, time.August, now))
	require.Empty(t, MaterializeFixedSchedules(schedules, 2025, time.September, now))
}

func TestMaterializeMatchesWeekday(t *testing.T) {
	schedules := []models.FixedSchedule{{
		ID:        "fs_2_da-lat_pm",
		RoomID:    "da-lat",
		Staff:     "Team Lucky",
		Start:     models.Clock{Hour: 14},
		End:       models.Clock{Hour: 15},
		DayOfWeek: int(time.Tuesday),
	}}

	now := time.Date(2026, time.September, 20, 8, 0, 0, 0, time.UTC)
	got := MaterializeFixedSchedules(schedules, 2026, time.September, now)

	// Tuesdays on or after Sept 20: the 22nd and the 29th.
	require.Len(t, got, 2)
	require.Equal(t, 22, got[0].Start.Day())
	require.Equal(t, 29, got[1].Start.Day())
}
