package sheet

import (
	"strings"

	"roomsheet/internal/models"
)

type fixedPair struct {
	slot  string
	start models.Clock
	end   models.Clock
}

type parsedFixedRow struct {
	staff []string
	rooms []models.Room
	pairs []fixedPair
}

// ParseFixedSchedules interprets the recurring-schedule region between the
// top of the tab and the booking header. A qualifying row names at least
// one staff entry, flags at least one room and carries at least one valid
// time pair; everything else up there is decoration. Each entry is
// expanded to all seven weekdays under a single id, so per-day rendering
// stays a view concern.
func ParseFixedSchedules(matrix [][]string, rooms []models.Room) []models.FixedSchedule {
	var schedules []models.FixedSchedule
	for i, row := range matrix {
		if isHeaderRow(row) {
			break
		}
		parsed, ok := interpretFixedRow(row, rooms)
		if !ok {
			continue
		}
		sheetRow := i + 1

		for _, room := range parsed.rooms {
			for _, pair := range parsed.pairs {
				for idx, staff := range parsed.staff {
					split := 0
					if len(parsed.staff) > 1 {
						split = idx + 1
					}
					id := models.FixedScheduleID(sheetRow, room.ID, pair.slot, split)
					for dow := 0; dow < 7; dow++ {
						schedules = append(schedules, models.FixedSchedule{
							ID:        id,
							RoomID:    room.ID,
							Staff:     staff,
							Start:     pair.start,
							End:       pair.end,
							DayOfWeek: dow,
							Row:       sheetRow,
							Slot:      pair.slot,
						})
					}
				}
			}
		}
	}
	return schedules
}

func interpretFixedRow(row []string, rooms []models.Room) (parsedFixedRow, bool) {
	staffCell := strings.TrimSpace(cellAt(row, colStaff))
	if upper := strings.ToUpper(staffCell); strings.HasSuffix(upper, staffLabelNoise) {
		staffCell = strings.TrimSpace(staffCell[:len(staffCell)-len(staffLabelNoise)])
	}
	if staffCell == "" {
		return parsedFixedRow{}, false
	}

	parsed := parsedFixedRow{staff: splitConcatenatedStaff(staffCell)}

	for idx, room := range rooms {
		if roomAssigned(cellAt(row, colRoomA+idx), room.Name) {
			parsed.rooms = append(parsed.rooms, room)
		}
	}
	if len(parsed.rooms) == 0 {
		return parsedFixedRow{}, false
	}

	for _, slot := range []string{models.SlotMorning, models.SlotAfternoon} {
		startCol, endCol := slotColumns(slot)
		start, errStart := models.ParseClock(cellAt(row, startCol))
		end, errEnd := models.ParseClock(cellAt(row, endCol))
		if errStart != nil || errEnd != nil || !start.Before(end) {
			continue
		}
		parsed.pairs = append(parsed.pairs, fixedPair{slot: slot, start: start, end: end})
	}
	if len(parsed.pairs) == 0 {
		return parsedFixedRow{}, false
	}
	return parsed, true
}

// splitConcatenatedStaff recovers two team names merged into one cell,
// a pattern like "Team Alpha Team Beta" that shows up when rows get
// combined by hand. Anything not matching that shape stays one entry.
func splitConcatenatedStaff(cell string) []string {
	tokens := strings.Fields(cell)
	if len(tokens) >= 4 && strings.EqualFold(tokens[0], "Team") && strings.EqualFold(tokens[2], "Team") {
		return []string{
			strings.Join(tokens[:2], " "),
			strings.Join(tokens[2:], " "),
		}
	}
	return []string{cell}
}
