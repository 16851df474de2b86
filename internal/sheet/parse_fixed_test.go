package sheet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"roomsheet/internal/models"
)

func TestParseFixedSchedules(t *testing.T) {
	matrix := [][]string{
		{"SEPTEMBER 2026"},
		{"", "", "Team Happy BOOKING STAFF", "Nha Trang", "", "9:00", "9:30", "", ""},
		{"", "", "", "", "", "", "", "", ""},
		{"DATE", "DAY", "BOOKING STAFF", "MEETING ROOM NHA TRANG", "MEETING ROOM DA LAT", "START", "END", "START", "END"},
		{"1", "Tuesday", "Not a schedule", "TRUE", "", "8:00", "8:30", "", ""},
	}

	got := ParseFixedSchedules(matrix, models.DefaultRooms())
	require.Len(t, got, 7)

	for i, s := range got {
		require.Equal(t, "fs_2_nha-trang_am", s.ID)
		require.Equal(t, "Team Happy", s.Staff)
		require.Equal(t, "nha-trang", s.RoomID)
		require.Equal(t, models.Clock{Hour: 9}, s.Start)
		require.Equal(t, models.Clock{Hour: 9, Minute: 30}, s.End)
		require.Equal(t, i, s.DayOfWeek)
		require.Equal(t, 2, s.Row)
		require.Equal(t, models.SlotMorning, s.Slot)
	}
}

func TestParseFixedSchedulesSplitsConcatenatedStaff(t *testing.T) {
	matrix := [][]string{
		{"", "", "Team Happy Team Lucky", "", "Da Lat", "", "", "13:00", "14:00"},
		{"DATE", "DAY"},
	}

	got := ParseFixedSchedules(matrix, models.DefaultRooms())
	require.Len(t, got, 14)

	byID := map[string][]models.FixedSchedule{}
	for _, s := range got {
		byID[s.ID] = append(byID[s.ID], s)
	}
	require.Len(t, byID, 2)
	require.Len(t, byID["fs_1_da-lat_pm_s1"], 7)
	require.Len(t, byID["fs_1_da-lat_pm_s2"], 7)
	require.Equal(t, "Team Happy", byID["fs_1_da-lat_pm_s1"][0].Staff)
	require.Equal(t, "Team Lucky", byID["fs_1_da-lat_pm_s2"][0].Staff)
}

func TestParseFixedSchedulesBothSlots(t *testing.T) {
	matrix := [][]string{
		{"", "", "Team Happy", "Nha Trang", "", "9:00", "10:00", "14:00", "15:00"},
		{"DATE", "DAY"},
	}

	got := ParseFixedSchedules(matrix, models.DefaultRooms())
	require.Len(t, got, 14)

	slots := map[string]int{}
	for _, s := range got {
		slots[s.ID]++
	}
	require.Equal(t, map[string]int{
		"fs_1_nha-trang_am": 7,
		"fs_1_nha-trang_pm": 7,
	}, slots)
}

func TestInterpretFixedRow(t *testing.T) {
	rooms := models.DefaultRooms()
	tests := []struct {
		name string
		row  []string
		ok   bool
	}{
		{"empty row", nil, false},
		{"no staff", []string{"", "", "", "Nha Trang", "", "9:00", "10:00"}, false},
		{"label only staff", []string{"", "", "BOOKING STAFF", "Nha Trang", "", "9:00", "10:00"}, false},
		{"no room", []string{"", "", "Team Happy", "", "", "9:00", "10:00"}, false},
		{"half a pair", []string{"", "", "Team Happy", "Nha Trang", "", "9:00", ""}, false},
		{"backwards pair", []string{"", "", "Team Happy", "Nha Trang", "", "10:00", "9:00"}, false},
		{"valid morning", []string{"", "", "Team Happy", "Nha Trang", "", "9:00", "10:00"}, true},
		{"valid afternoon only", []string{"", "", "Team Happy", "", "Da Lat", "", "", "13:00", "14:00"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := interpretFixedRow(tt.row, rooms)
			require.Equal(t, tt.ok, ok)
		})
	}
}

func TestInterpretFixedRowBothRooms(t *testing.T) {
	row := []string{"", "", "Team Happy", "Nha Trang", "Da Lat", "9:00", "10:00"}
	parsed, ok := interpretFixedRow(row, models.DefaultRooms())
	require.True(t, ok)
	require.Len(t, parsed.rooms, 2)
	require.Len(t, parsed.pairs, 1)
	require.Equal(t, []string{"Team Happy"}, parsed.staff)
}

func TestSplitConcatenatedStaff(t *testing.T) {
	require.Equal(t, []string{"Team Happy", "Team Lucky"}, splitConcatenatedStaff("Team Happy Team Lucky"))
	require.Equal(t, []string{"team happy", "team lucky"}, splitConcatenatedStaff("team happy team lucky"))
	require.Equal(t, []string{"Team Happy Lucky"}, splitConcatenatedStaff("Team Happy Lucky"))
	require.Equal(t, []string{"Marketing all hands"}, splitConcatenatedStaff("Marketing all hands"))
	require.Equal(t, []string{"Team Happy", "Team Lucky Team Sunny"}, splitConcatenatedStaff("Team Happy Team Lucky Team Sunny"))
}
