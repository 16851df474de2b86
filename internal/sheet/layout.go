package sheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"roomsheet/internal/models"
)

// A monthly tab is a fixed nine-column grid, A through I. The top rows
// hold the month title and the fixed-schedule region, then one row of
// column labels, then one booking row per line. Humans own the layout;
// this package owns staying bit-exact with it.
const (
	colDate = iota // A: day of month
	colDay         // B: weekday name
	colStaff       // C: requester or staff
	colRoomA       // D: first room flag
	colRoomB       // E: second room flag
	colMorningStart
	colMorningEnd
	colAfternoonStart
	colAfternoonEnd
	columnCount
)

const (
	headerDateMarker = "DATE"
	headerDayMarker  = "DAY"
	headerRoomMarker = "MEETING ROOM"
	trueMarker       = "TRUE"

	// Merged header cells leak this label into staff cells on CSV reads.
	staffLabelNoise = "BOOKING STAFF"

	// Where the column-label row sits when no marker row can be found.
	fallbackHeaderRow = 4
)

// Tab identifies one monthly worksheet.
type Tab struct {
	GID   int64
	Title string
}

// cellAt indexes a possibly ragged row without panicking.
func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// isHeaderRow recognizes the booking-table label row: DATE and DAY in the
// first two columns, or a room column carrying the MEETING ROOM banner.
func isHeaderRow(row []string) bool {
	dateCell := strings.ToUpper(strings.TrimSpace(cellAt(row, colDate)))
	dayCell := strings.ToUpper(strings.TrimSpace(cellAt(row, colDay)))
	if strings.Contains(dateCell, headerDateMarker) && strings.Contains(dayCell, headerDayMarker) {
		return true
	}

	for _, col := range []int{colRoomA, colRoomB} {
		if strings.Contains(strings.ToUpper(cellAt(row, col)), headerRoomMarker) {
			return true
		}
	}
	return false
}

// findBookingHeader returns the 1-based row of the column-label row. The
// fixed-schedule region can grow, so the header is found by scanning, with
// a fixed fallback when a tab carries no recognizable labels.
func findBookingHeader(matrix [][]string) int {
	for i, row := range matrix {
		if isHeaderRow(row) {
			return i + 1
		}
	}
	return fallbackHeaderRow
}

// roomAssigned decides whether a flag cell assigns the row to a room. The
// sheet's dropdown values drifted over the years between a bare TRUE and
// the room's display name, with stray whitespace and hyphens on top.
func roomAssigned(cell, roomName string) bool {
	normalized := normalizeRoomToken(cell)
	if normalized == "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(cell), trueMarker) {
		return true
	}
	return strings.Contains(normalized, normalizeRoomToken(roomName))
}

func normalizeRoomToken(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "-", " "))
	return strings.Join(strings.Fields(s), " ")
}

// quoteTitle makes a tab title safe for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// gridRange covers the whole nine-column grid of a tab.
func gridRange(title string) string {
	return quoteTitle(title) + "!A:I"
}

// rowRange covers all nine columns of one row.
func rowRange(title string, row int) string {
	return fmt.Sprintf("%s!A%d:I%d", quoteTitle(title), row, row)
}

// fixedRange covers the staff-through-times block of the fixed region.
func fixedRange(title string, fromRow, toRow int) string {
	return fmt.Sprintf("%s!C%d:I%d", quoteTitle(title), fromRow, toRow)
}

// monthTitles returns the two tab names humans use for a month, upper case
// first.
func monthTitles(year int, month time.Month) (string, string) {
	return fmt.Sprintf("%s %d", strings.ToUpper(month.String()), year),
		fmt.Sprintf("%s %d", month.String(), year)
}

// containsMonth reports whether a cell or title mentions the month name.
func containsMonth(text string, month time.Month) bool {
	return strings.Contains(strings.ToUpper(text), strings.ToUpper(month.String()))
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// titleYear extracts a four-digit year from a cell or title, if one is
// there.
func titleYear(text string) (int, bool) {
	match := yearPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}

// SlotFor buckets a start time into the morning or afternoon column pair.
func SlotFor(start models.Clock) string {
	if start.Minutes() < 12*60 {
		return models.SlotMorning
	}
	return models.SlotAfternoon
}

// slotColumns returns the start/end column pair for a slot.
func slotColumns(slot string) (int, int) {
	if slot == models.SlotMorning {
		return colMorningStart, colMorningEnd
	}
	return colAfternoonStart, colAfternoonEnd
}
