package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roomsheet/internal/cache"
	"roomsheet/internal/events"
	"roomsheet/internal/metrics"
	"roomsheet/internal/models"
	"roomsheet/internal/sheet"
)

// Bookings lists a month's bookings, recurring entries already projected
// onto concrete days when the month is the current one. Zero year or
// month selects the current month. Cache hits are served as-is; an entry
// older than refreshAfter additionally queues a background re-read.
func (f *Facade) Bookings(ctx context.Context, year int, month time.Month) ([]models.Booking, error) {
	now := f.nowFunc().In(f.loc)
	if year == 0 || month == 0 {
		year, month = now.Year(), now.Month()
	}

	key := cache.BookingsKey(year, month)
	var cached []models.Booking
	if at, ok, _ := f.cacheGet(ctx, key, &cached); ok {
		metrics.IncCache("bookings", "hit")
		if now.Sub(at) > refreshAfter {
			f.scheduleRefresh(year, month, 0)
		}
		return cached, nil
	}
	metrics.IncCache("bookings", "miss")

	bookings, err := f.fetchMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	f.cachePut(ctx, key, bookings)
	return bookings, nil
}

// fetchMonth reads one month's grid and interprets every region of it.
func (f *Facade) fetchMonth(ctx context.Context, year int, month time.Month) ([]models.Booking, error) {
	_, matrix, err := f.monthMatrix(ctx, year, month)
	if err != nil {
		return nil, err
	}
	now := f.nowFunc().In(f.loc)
	bookings := sheet.ParseBookings(matrix, year, month, f.rooms, f.loc)
	schedules := sheet.ParseFixedSchedules(matrix, f.rooms)
	return append(bookings, sheet.MaterializeFixedSchedules(schedules, year, month, now)...), nil
}

// bookingInput is a BookingRequest after validation, with the room
// resolved and the date and times parsed into the sheet's location.
type bookingInput struct {
	room  models.Room
	index int
	date  time.Time
	start models.Clock
	end   models.Clock
	title string
}

func (f *Facade) parseBookingRequest(req models.BookingRequest) (bookingInput, error) {
	var in bookingInput

	room, idx, err := f.roomByID(req.RoomID)
	if err != nil {
		return in, err
	}
	date, err := f.parseDate(req.Date)
	if err != nil {
		return in, err
	}
	start, err := models.ParseClock(req.StartTime)
	if err != nil {
		return in, validationError(fmt.Sprintf("bad start time %q", req.StartTime))
	}
	end, err := models.ParseClock(req.EndTime)
	if err != nil {
		return in, validationError(fmt.Sprintf("bad end time %q", req.EndTime))
	}
	if !start.Before(end) {
		return in, validationError("start time must be before end time")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return in, validationError("title is required")
	}

	return bookingInput{room: room, index: idx, date: date, start: start, end: end, title: title}, nil
}

func (in bookingInput) booking() models.Booking {
	return models.Booking{
		RoomID: in.room.ID,
		Title:  in.title,
		Start:  in.start.At(in.date),
		End:    in.end.At(in.date),
	}
}

func (in bookingInput) row() sheet.BookingRow {
	return sheet.BookingRow{
		Day:       in.date.Day(),
		DayName:   in.date.Weekday().String(),
		Title:     in.title,
		RoomIndex: in.index,
		RoomLabel: in.room.Name,
		Start:     in.start,
		End:       in.end,
	}
}

// checkBookingFree re-derives the month's state from the write matrix and
// applies both conflict rules. Rows listed in exclude are about to be
// deleted and do not count.
func (f *Facade) checkBookingFree(candidate models.Booking, matrix [][]string, year int, month time.Month, exclude []int) error {
	bookings := excludeBookingRows(sheet.ParseBookings(matrix, year, month, f.rooms, f.loc), exclude)
	if hit := FindBookingConflict(candidate, bookings); hit != nil {
		return conflictWithBooking(*hit)
	}
	if hit := FindFixedConflictForBooking(candidate, sheet.ParseFixedSchedules(matrix, f.rooms)); hit != nil {
		return conflictWithSchedule(*hit)
	}
	return nil
}

// CreateBooking validates, re-checks conflicts against a fresh read and
// inserts the row. Formatting and the cache refresh run afterwards in the
// background; their failure never fails the booking.
func (f *Facade) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	in, err := f.parseBookingRequest(req)
	if err != nil {
		return nil, err
	}
	candidate := in.booking()
	if err := f.checkNotPast(candidate.Start); err != nil {
		return nil, err
	}

	op := f.beginOp(ctx, models.OpBookingCreate, fmt.Sprintf("%s %s %s-%s", in.room.ID, req.Date, in.start, in.end))

	year, month := in.date.Year(), in.date.Month()
	tab, matrix, err := f.writeTarget(ctx, year, month)
	if err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}
	if err := f.checkBookingFree(candidate, matrix, year, month, nil); err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}

	result, err := f.writer.InsertBookingRow(ctx, tab, in.row(), matrix)
	if err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}
	f.stage(ctx, op, models.StageInserted, fmt.Sprintf("row %d", result.Row))
	f.scheduleFormatCopy(op, tab, result)

	created := candidate
	created.Row = result.Row
	created.ID = models.BookingID(in.room.ID, result.Row, in.start, in.end)

	f.publish(events.EventBookingCreated, events.BookingEventPayload{
		BookingID: created.ID,
		RoomID:    created.RoomID,
		Title:     created.Title,
		Start:     created.Start,
		End:       created.End,
	})
	f.finishWrite(ctx, op, year, month)
	return &created, nil
}

// UpdateBooking inserts the new version first and deletes the old rows
// second, so a crash in between leaves a duplicate rather than a lost
// booking. The old booking is located by content via its id and date.
func (f *Facade) UpdateBooking(ctx context.Context, id, date string, req models.BookingRequest) (*models.Booking, error) {
	oldRoomID, _, oldStart, oldEnd, err := models.ParseBookingID(id)
	if err != nil {
		return nil, validationError(err.Error())
	}
	oldRoom, oldIndex, err := f.roomByID(oldRoomID)
	if err != nil {
		return nil, err
	}
	oldDate, err := f.parseDate(date)
	if err != nil {
		return nil, err
	}
	in, err := f.parseBookingRequest(req)
	if err != nil {
		return nil, err
	}
	candidate := in.booking()
	if err := f.checkNotPast(candidate.Start); err != nil {
		return nil, err
	}

	op := f.beginOp(ctx, models.OpBookingUpdate, id)

	oldYear, oldMonth := oldDate.Year(), oldDate.Month()
	oldTab, oldMatrix, err := f.writeTarget(ctx, oldYear, oldMonth)
	if err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}

	oldRows := sheet.MatchBookingRows(oldMatrix, oldDate.Day(), oldIndex, oldRoom.Name, oldStart, oldEnd)
	if len(oldRows) == 0 {
		f.stage(ctx, op, models.StageNotFound, fmt.Sprintf("no row matches %s on %s", id, date))
		return nil, ErrNotFound
	}
	f.stage(ctx, op, models.StageRowLocated, fmt.Sprintf("rows %v", oldRows))

	newYear, newMonth := in.date.Year(), in.date.Month()
	newTab, newMatrix := oldTab, oldMatrix
	if newYear != oldYear || newMonth != oldMonth {
		newTab, newMatrix, err = f.writeTarget(ctx, newYear, newMonth)
		if err != nil {
			f.failOp(ctx, op, err)
			return nil, err
		}
	}

	var exclude []int
	if newTab.GID == oldTab.GID {
		exclude = oldRows
	}
	if err := f.checkBookingFree(candidate, newMatrix, newYear, newMonth, exclude); err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}

	result, err := f.writer.InsertBookingRow(ctx, newTab, in.row(), newMatrix)
	if err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}
	f.stage(ctx, op, models.StageInserted, fmt.Sprintf("row %d", result.Row))
	f.scheduleFormatCopy(op, newTab, result)

	staleRows := oldRows
	if newTab.GID == oldTab.GID {
		staleRows = sheet.AdjustRowsAfterInsert(oldRows, result.Row)
	}
	deleted, err := f.writer.DeleteRows(ctx, oldTab, staleRows)
	if err != nil {
		// The new row is in; a leftover duplicate beats a lost booking.
		f.logger.Error().Err(err).Str("booking_id", id).Ints("rows", staleRows).Ints("deleted", deleted).
			Msg("stale row cleanup failed after update")
		f.publish(events.EventStaleCleanupFailed, events.FailurePayload{
			Operation: models.OpBookingUpdate,
			TargetID:  id,
			Detail:    err.Error(),
			Rows:      staleRows,
		})
		f.stage(ctx, op, models.StageDeleted, fmt.Sprintf("partial, deleted %v of %v", deleted, staleRows))
	} else {
		f.stage(ctx, op, models.StageDeleted, fmt.Sprintf("rows %v", deleted))
	}

	updated := candidate
	updated.Row = result.Row
	updated.ID = models.BookingID(in.room.ID, result.Row, in.start, in.end)

	f.publish(events.EventBookingUpdated, events.BookingEventPayload{
		BookingID: updated.ID,
		RoomID:    updated.RoomID,
		Title:     updated.Title,
		Start:     updated.Start,
		End:       updated.End,
	})
	f.finishWrite(ctx, op, newYear, newMonth)
	if oldTab.GID != newTab.GID {
		f.scheduleRefresh(oldYear, oldMonth, f.settle)
	}
	return &updated, nil
}

// DeleteBooking removes every row matching the id on the given date.
// Duplicates left behind by earlier half-finished updates go with it.
func (f *Facade) DeleteBooking(ctx context.Context, id, date string) error {
	roomID, _, start, end, err := models.ParseBookingID(id)
	if err != nil {
		return validationError(err.Error())
	}
	room, index, err := f.roomByID(roomID)
	if err != nil {
		return err
	}
	day, err := f.parseDate(date)
	if err != nil {
		return err
	}

	op := f.beginOp(ctx, models.OpBookingDelete, id)

	year, month := day.Year(), day.Month()
	tab, matrix, err := f.writeTarget(ctx, year, month)
	if err != nil {
		f.failOp(ctx, op, err)
		return err
	}

	rows := sheet.MatchBookingRows(matrix, day.Day(), index, room.Name, start, end)
	if len(rows) == 0 {
		f.stage(ctx, op, models.StageNotFound, fmt.Sprintf("no row matches %s on %s", id, date))
		return ErrNotFound
	}
	f.stage(ctx, op, models.StageRowLocated, fmt.Sprintf("rows %v", rows))

	var title string
	if r := rows[0] - 1; r >= 0 && r < len(matrix) && len(matrix[r]) > 2 {
		title = matrix[r][2]
	}

	deleted, err := f.writer.DeleteRows(ctx, tab, rows)
	if err != nil {
		f.failOp(ctx, op, fmt.Errorf("deleted %v of %v: %w", deleted, rows, err))
		return err
	}
	f.stage(ctx, op, models.StageDeleted, fmt.Sprintf("rows %v", deleted))

	f.publish(events.EventBookingDeleted, events.BookingEventPayload{
		BookingID: id,
		RoomID:    roomID,
		Title:     title,
		Start:     start.At(day),
		End:       end.At(day),
	})
	f.finishWrite(ctx, op, year, month)
	return nil
}

func (f *Facade) scheduleFormatCopy(op opRef, tab sheet.Tab, result sheet.InsertResult) {
	if f.tasks == nil || result.FormatSource <= 0 {
		return
	}
	f.tasks.EnqueueFormatCopy(op.id, tab.GID, result.FormatSource, result.Row)
}
