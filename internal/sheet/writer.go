package sheet

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"roomsheet/internal/logging"
	"roomsheet/internal/models"
)

// batchAPI is the slice of the Sheets client the writer needs. CSV rows
// never feed a write; every row number here comes from a values-API read.
type batchAPI interface {
	UpdateValues(ctx context.Context, rangeA1 string, values [][]interface{}) error
	InsertRow(ctx context.Context, gid int64, row int) error
	DeleteRow(ctx context.Context, gid int64, row int) error
	CopyRowFormat(ctx context.Context, gid int64, fromRow, toRow int) error
}

// Writer mutates a month tab. It is deliberately dumb about business
// rules: validation and conflict checking happen before a Writer method
// is called, and each method maps to the smallest set of API calls that
// keeps the grid readable for the people who edit it by hand.
type Writer struct {
	api    batchAPI
	logger zerolog.Logger
}

func NewWriter(api batchAPI, logger *zerolog.Logger) *Writer {
	return &Writer{api: api, logger: logging.Component(logger, "sheet_writer")}
}

// BookingRow is the cell payload for one booking line. Start decides
// whether the pair lands in the morning or afternoon columns; the other
// pair and the other room's flag are written blank.
type BookingRow struct {
	Day       int
	DayName   string
	Title     string
	RoomIndex int
	RoomLabel string
	Start     models.Clock
	End       models.Clock
}

func (b BookingRow) values() [][]interface{} {
	cells := make([]interface{}, columnCount)
	for i := range cells {
		cells[i] = ""
	}
	cells[colDate] = b.Day
	cells[colDay] = b.DayName
	cells[colStaff] = b.Title
	cells[colRoomA+b.RoomIndex] = b.RoomLabel
	startCol, endCol := slotColumns(SlotFor(b.Start))
	cells[startCol] = b.Start.String()
	cells[endCol] = b.End.String()
	return [][]interface{}{cells}
}

// InsertResult reports where a booking row landed. FormatSource is the
// row whose formatting should be cloned onto it, 0 when there is none.
type InsertResult struct {
	Row          int
	FormatSource int
}

// InsertBookingRow adds a structural row at the position that keeps the
// table ordered by date and start time, then writes the booking cells
// into it. matrix must be the values-API snapshot the caller planned
// against; row numbers resolved from that snapshot stay valid if shifted
// with AdjustRowsAfterInsert.
func (w *Writer) InsertBookingRow(ctx context.Context, tab Tab, row BookingRow, matrix [][]string) (InsertResult, error) {
	headerRow := findBookingHeader(matrix)
	insertRow := computeInsertRow(matrix, headerRow, row.Day, row.Start)

	if err := w.api.InsertRow(ctx, tab.GID, insertRow); err != nil {
		return InsertResult{}, fmt.Errorf("insert row %d: %w", insertRow, err)
	}
	if err := w.api.UpdateValues(ctx, rowRange(tab.Title, insertRow), row.values()); err != nil {
		return InsertResult{}, fmt.Errorf("write row %d: %w", insertRow, err)
	}

	res := InsertResult{Row: insertRow}
	if insertRow > 1 {
		res.FormatSource = insertRow - 1
	}
	w.logger.Info().
		Str("tab", tab.Title).
		Int("row", insertRow).
		Int("day", row.Day).
		Msg("booking row inserted")
	return res, nil
}

// DeleteRows removes the given 1-based rows, highest first so earlier
// deletions do not shift the remaining targets. The rows removed so far
// are returned even on error, so the caller knows what is now stale.
func (w *Writer) DeleteRows(ctx context.Context, tab Tab, rows []int) ([]int, error) {
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	var deleted []int
	for _, row := range sorted {
		if err := w.api.DeleteRow(ctx, tab.GID, row); err != nil {
			return deleted, fmt.Errorf("delete row %d: %w", row, err)
		}
		deleted = append(deleted, row)
	}

	w.logger.Info().Str("tab", tab.Title).Ints("rows", deleted).Msg("booking rows deleted")
	return deleted, nil
}

// CopyRowFormatting clones one row's look onto another. Write paths run
// it after the values land and never fail the operation over it.
func (w *Writer) CopyRowFormatting(ctx context.Context, tab Tab, fromRow, toRow int) error {
	return w.api.CopyRowFormat(ctx, tab.GID, fromRow, toRow)
}

// MatchBookingRows re-resolves a booking against a fresh matrix: every
// data row carrying the same day, the room's flag and exactly the given
// time pair qualifies. More than one match means the sheet holds
// duplicates; the caller decides which to touch.
func MatchBookingRows(matrix [][]string, day, roomIndex int, roomName string, start, end models.Clock) []int {
	headerRow := findBookingHeader(matrix)
	startCol, endCol := slotColumns(SlotFor(start))

	var rows []int
	for i := headerRow; i < len(matrix); i++ {
		row := matrix[i]
		d, err := strconv.Atoi(strings.TrimSpace(cellAt(row, colDate)))
		if err != nil || d != day {
			continue
		}
		if !roomAssigned(cellAt(row, colRoomA+roomIndex), roomName) {
			continue
		}
		s, errStart := models.ParseClock(cellAt(row, startCol))
		e, errEnd := models.ParseClock(cellAt(row, endCol))
		if errStart != nil || errEnd != nil || s != start || e != end {
			continue
		}
		rows = append(rows, i+1)
	}
	return rows
}

// AdjustRowsAfterInsert shifts row numbers resolved before a structural
// insert: everything at or below the inserted row moved down one.
func AdjustRowsAfterInsert(rows []int, insertedRow int) []int {
	adjusted := make([]int, len(rows))
	for i, r := range rows {
		if insertedRow <= r {
			r++
		}
		adjusted[i] = r
	}
	return adjusted
}

// computeInsertRow picks the 1-based row at which a booking for day
// should land so each date block stays ordered by start time: before the
// first same-day row starting at or after the candidate, else after the
// last same-day row, else after the last row of an earlier day, else at
// the top of the table.
func computeInsertRow(matrix [][]string, headerRow, day int, start models.Clock) int {
	type dayRow struct {
		row int
		key int
	}
	var sameDay []dayRow
	var lastEarlier int

	for i := headerRow; i < len(matrix); i++ {
		row := matrix[i]
		sheetRow := i + 1
		d, err := strconv.Atoi(strings.TrimSpace(cellAt(row, colDate)))
		if err != nil || d < 1 || d > 31 {
			continue
		}
		switch {
		case d == day:
			sameDay = append(sameDay, dayRow{row: sheetRow, key: rowSortKey(row)})
		case d < day:
			lastEarlier = sheetRow
		}
	}

	if len(sameDay) > 0 {
		sort.SliceStable(sameDay, func(i, j int) bool { return sameDay[i].key < sameDay[j].key })
		for _, r := range sameDay {
			if r.key >= start.Minutes() {
				return r.row
			}
		}
		last := 0
		for _, r := range sameDay {
			if r.row > last {
				last = r.row
			}
		}
		return last + 1
	}
	if lastEarlier > 0 {
		return lastEarlier + 1
	}
	return headerRow + 1
}

// rowSortKey orders rows within one day by their first start time.
// Unparseable times sort last so junk rows drift to the end of the day.
func rowSortKey(row []string) int {
	if c, err := models.ParseClock(cellAt(row, colMorningStart)); err == nil {
		return c.Minutes()
	}
	if c, err := models.ParseClock(cellAt(row, colAfternoonStart)); err == nil {
		return c.Minutes()
	}
	return 1 << 20
}

// FixedRowData is the cell payload for one recurring-schedule line. Only
// columns C through I are written; whatever decoration the region keeps
// in A and B stays untouched.
type FixedRowData struct {
	Staff     string
	RoomIndex int
	RoomLabel string
	Start     models.Clock
	End       models.Clock
}

func (f FixedRowData) values() [][]interface{} {
	cells := make([]interface{}, columnCount-colStaff)
	for i := range cells {
		cells[i] = ""
	}
	cells[colStaff-colStaff] = f.Staff
	cells[colRoomA-colStaff+f.RoomIndex] = f.RoomLabel
	startCol, endCol := slotColumns(SlotFor(f.Start))
	cells[startCol-colStaff] = f.Start.String()
	cells[endCol-colStaff] = f.End.String()
	return [][]interface{}{cells}
}

// FindFreeFixedRow locates a reusable blank line in the fixed region. A
// line counts as free only when every cell is empty; the month title and
// other decoration keep content in column A, and writing next to it
// would wreck the banner. When no line is free the header row is
// reported with insert true, meaning a structural row must be added
// there, pushing the booking table down one.
func FindFreeFixedRow(matrix [][]string) (row int, insert bool) {
	headerRow := findBookingHeader(matrix)
	for r := 1; r < headerRow; r++ {
		if rowEmpty(matrixRow(matrix, r)) {
			return r, false
		}
	}
	return headerRow, true
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// matrixRow returns the 1-based row's cells, nil past the end.
func matrixRow(matrix [][]string, row int) []string {
	if row < 1 || row > len(matrix) {
		return nil
	}
	return matrix[row-1]
}

// CreateFixedRow places a new recurring entry, reusing a blank line when
// the region has one and growing the region otherwise. inserted reports
// whether a structural insert moved the booking table down.
func (w *Writer) CreateFixedRow(ctx context.Context, tab Tab, matrix [][]string, data FixedRowData) (row int, inserted bool, err error) {
	row, inserted = FindFreeFixedRow(matrix)
	if inserted {
		if err := w.api.InsertRow(ctx, tab.GID, row); err != nil {
			return 0, false, fmt.Errorf("insert fixed row %d: %w", row, err)
		}
	}
	if err := w.WriteFixedRow(ctx, tab, row, data); err != nil {
		return 0, false, err
	}
	return row, inserted, nil
}

// WriteFixedRow writes a recurring entry into the given row of the fixed
// region, replacing whatever the row held.
func (w *Writer) WriteFixedRow(ctx context.Context, tab Tab, row int, data FixedRowData) error {
	if err := w.api.UpdateValues(ctx, fixedRange(tab.Title, row, row), data.values()); err != nil {
		return fmt.Errorf("write fixed row %d: %w", row, err)
	}
	w.logger.Info().Str("tab", tab.Title).Int("row", row).Msg("fixed schedule row written")
	return nil
}

// DeleteFixedRow removes a recurring entry's row. The structural delete
// shifts everything below up one, which keeps the region compact: the
// remaining fixed rows close the gap and no blank line is left above the
// header for the parsers to trip over.
func (w *Writer) DeleteFixedRow(ctx context.Context, tab Tab, matrix [][]string, row int) error {
	headerRow := findBookingHeader(matrix)
	if row < 1 || row >= headerRow {
		return fmt.Errorf("fixed row %d outside region ending at %d", row, headerRow-1)
	}

	if err := w.api.DeleteRow(ctx, tab.GID, row); err != nil {
		return fmt.Errorf("delete fixed row %d: %w", row, err)
	}
	w.logger.Info().Str("tab", tab.Title).Int("row", row).Msg("fixed schedule row removed")
	return nil
}
