package sheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roomsheet/internal/models"
)

func TestFindBookingHeader(t *testing.T) {
	matrix := [][]string{
		{"SEPTEMBER 2026"},
		{"", "", "Team Happy", "Nha Trang", "", "9:00", "9:30", "", ""},
		{},
		{"DATE", "DAY", "BOOKING STAFF", "MEETING ROOM NHA TRANG", "MEETING ROOM DA LAT", "START", "END", "START", "END"},
		{"1", "Tuesday", "Design sync", "Nha Trang", "", "9:00", "9:30", "", ""},
	}
	require.Equal(t, 4, findBookingHeader(matrix))
}

func TestFindBookingHeaderFallback(t *testing.T) {
	matrix := [][]string{
		{"SEPTEMBER 2026"},
		{"", "", "Team Happy"},
	}
	require.Equal(t, fallbackHeaderRow, findBookingHeader(matrix))
}

func TestIsHeaderRow(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want bool
	}{
		{"date and day markers", []string{"DATE", "DAY"}, true},
		{"lower case markers", []string{"date", "day"}, true},
		{"room marker first column", []string{"", "", "", "MEETING ROOM NHA TRANG"}, true},
		{"room marker second column", []string{"", "", "", "", "Meeting Room Da Lat"}, true},
		{"date without day", []string{"DATE", ""}, false},
		{"data row", []string{"1", "Tuesday", "Sync", "TRUE", "", "9:00", "9:30", "", ""}, false},
		{"empty row", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isHeaderRow(tt.row))
		})
	}
}

func TestRoomAssigned(t *testing.T) {
	tests := []struct {
		name string
		cell string
		room string
		want bool
	}{
		{"true marker", "TRUE", "Nha Trang", true},
		{"true marker lower case", "true", "Nha Trang", true},
		{"display name", "Nha Trang", "Nha Trang", true},
		{"extra whitespace and case", "  nha   TRANG ", "Nha Trang", true},
		{"hyphenated form", "nha-trang", "Nha Trang", true},
		{"name inside longer text", "MEETING ROOM NHA TRANG", "Nha Trang", true},
		{"other room", "Da Lat", "Nha Trang", false},
		{"empty cell", "", "Nha Trang", false},
		{"whitespace only", "   ", "Nha Trang", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, roomAssigned(tt.cell, tt.room))
		})
	}
}

func TestRangeBuilding(t *testing.T) {
	require.Equal(t, "'SEPTEMBER 2026'!A:I", gridRange("SEPTEMBER 2026"))
	require.Equal(t, "'SEPTEMBER 2026'!A7:I7", rowRange("SEPTEMBER 2026", 7))
	require.Equal(t, "'SEPTEMBER 2026'!C2:I3", fixedRange("SEPTEMBER 2026", 2, 3))
	require.Equal(t, "'It''s booked'!A:I", gridRange("It's booked"))
}

func TestMonthTitles(t *testing.T) {
	upper, title := monthTitles(2026, time.September)
	require.Equal(t, "SEPTEMBER 2026", upper)
	require.Equal(t, "September 2026", title)
}

func TestTitleYear(t *testing.T) {
	year, ok := titleYear("AUGUST 2026")
	require.True(t, ok)
	require.Equal(t, 2026, year)

	_, ok = titleYear("AUGUST")
	require.False(t, ok)
}

func TestSlotBuckets(t *testing.T) {
	require.Equal(t, models.SlotMorning, SlotFor(models.Clock{Hour: 11, Minute: 59}))
	require.Equal(t, models.SlotAfternoon, SlotFor(models.Clock{Hour: 12}))

	start, end := slotColumns(models.SlotMorning)
	require.Equal(t, colMorningStart, start)
	require.Equal(t, colMorningEnd, end)

	start, end = slotColumns(models.SlotAfternoon)
	require.Equal(t, colAfternoonStart, start)
	require.Equal(t, colAfternoonEnd, end)
}

func TestCellAt(t *testing.T) {
	row := []string{"a", "b"}
	require.Equal(t, "b", cellAt(row, 1))
	require.Equal(t, "", cellAt(row, 5))
	require.Equal(t, "", cellAt(nil, 0))
}
