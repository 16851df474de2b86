package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"roomsheet/internal/config"
	"roomsheet/internal/domain"
	"roomsheet/internal/logging"
	"roomsheet/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter writes month snapshots of the booking grid to Excel files.
// The snapshot reflects what the read API serves: one-off bookings plus
// the remaining fixed-schedule occurrences of the current month.
type Exporter struct {
	bookings  domain.BookingService
	schedules domain.ScheduleService
	path      string
	loc       *time.Location
	logger    zerolog.Logger
}

func New(bookings domain.BookingService, schedules domain.ScheduleService, cfg config.ExportConfig, loc *time.Location, logger *zerolog.Logger) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{
		bookings:  bookings,
		schedules: schedules,
		path:      cfg.Path,
		loc:       loc,
		logger:    logging.Component(logger, "export"),
	}
}

// MonthSnapshot renders one month as a day-by-room grid and saves it
// under the export directory. Zero year/month means the current month.
func (e *Exporter) MonthSnapshot(ctx context.Context, year int, month time.Month) (string, error) {
	if year == 0 || month == 0 {
		now := time.Now().In(e.loc)
		year, month = now.Year(), now.Month()
	}

	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	list, err := e.bookings.Bookings(ctx, year, month)
	if err != nil {
		return "", fmt.Errorf("load bookings: %w", err)
	}
	rooms := e.bookings.Rooms(ctx)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("MEETING ROOMS %s %d", strings.ToUpper(month.String()), year))

	e.writeRoomHeaders(f, sheetName, rooms)
	e.writeDayRows(f, sheetName, rooms, list, year, month)

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	for i := 0; i < len(rooms); i++ {
		col := string(rune('B' + i))
		_ = f.SetColWidth(sheetName, col, col, 42)
	}

	lastCol := lastColumn(len(rooms) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	if e.schedules != nil {
		if err := e.writeScheduleSheet(ctx, f, rooms); err != nil {
			e.logger.Error().Err(err).Msg("fixed schedule sheet skipped")
		}
	}

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%04d-%02d.xlsx", year, int(month))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(list)).Msg("month snapshot written")
	return filePath, nil
}

func (e *Exporter) writeRoomHeaders(f *excelize.File, sheetName string, rooms []models.Room) {
	cell, _ := excelize.CoordinatesToCellName(1, 2)
	_ = f.SetCellValue(sheetName, cell, "Date")

	dateStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, cell, cell, dateStyle)

	roomStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, room := range rooms {
		cell, _ := excelize.CoordinatesToCellName(i+2, 2)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (%d)", room.Name, room.Capacity))
		_ = f.SetCellStyle(sheetName, cell, cell, roomStyle)
	}
}

func (e *Exporter) writeDayRows(f *excelize.File, sheetName string, rooms []models.Room, list []models.Booking, year int, month time.Month) {
	type key struct {
		day    int
		roomID string
	}
	byCell := make(map[key][]models.Booking)
	for _, b := range list {
		k := key{day: b.Start.Day(), roomID: b.RoomID}
		byCell[k] = append(byCell[k], b)
	}

	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, e.loc).Day()
	for day := 1; day <= lastDay; day++ {
		row := day + 2
		date := time.Date(year, month, day, 0, 0, 0, 0, e.loc)

		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%d %s", day, date.Weekday().String()[:3]))

		for i, room := range rooms {
			entries := byCell[key{day: day, roomID: room.ID}]
			if len(entries) == 0 {
				continue
			}
			sort.Slice(entries, func(a, b int) bool {
				return entries[a].Start.Before(entries[b].Start)
			})

			var lines []string
			for _, b := range entries {
				line := fmt.Sprintf("%s-%s %s", b.Start.Format("15:04"), b.End.Format("15:04"), b.Title)
				if b.IsFixed {
					line += " (daily)"
				}
				lines = append(lines, line)
			}

			cell, _ := excelize.CoordinatesToCellName(i+2, row)
			_ = f.SetCellValue(sheetName, cell, strings.Join(lines, "\n"))

			styleID, err := e.cellStyle(f, entries)
			if err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
		}
	}
}

// cellStyle colors a booked cell: green when a one-off booking holds it,
// yellow when only fixed-schedule occurrences do.
func (e *Exporter) cellStyle(f *excelize.File, entries []models.Booking) (int, error) {
	fill := "#FFEB9C"
	for _, b := range entries {
		if !b.IsFixed {
			fill = "#C6EFCE"
			break
		}
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

func (e *Exporter) writeScheduleSheet(ctx context.Context, f *excelize.File, rooms []models.Room) error {
	schedules, err := e.schedules.FixedSchedules(ctx)
	if err != nil {
		return err
	}

	sheetName := "Fixed schedules"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headers := []string{"ID", "Room", "Staff", "Start", "End", "Slot"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	roomNames := make(map[string]string, len(rooms))
	for _, room := range rooms {
		roomNames[room.ID] = room.Name
	}

	// Parsing expands each schedule to one entry per weekday; the listing
	// collapses them back to the daily pattern.
	seen := make(map[string]bool)
	row := 2
	for _, s := range schedules {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true

		name := roomNames[s.RoomID]
		if name == "" {
			name = s.RoomID
		}

		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), s.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), s.Staff)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), s.Start.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), s.End.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), s.Slot)
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 22)
	_ = f.SetColWidth(sheetName, "B", "C", 18)
	_ = f.SetColWidth(sheetName, "D", "F", 10)

	return nil
}

func lastColumn(colCount int) string {
	if colCount <= 26 {
		return string(rune('A' + colCount - 1))
	}

	firstChar := string(rune('A' + (colCount-1)/26 - 1))
	secondChar := string(rune('A' + (colCount-1)%26))
	return firstChar + secondChar
}
