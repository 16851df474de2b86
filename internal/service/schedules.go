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

// Recurring schedules live in the fixed region at the top of the current
// month's tab, so every schedule operation targets that tab regardless of
// date.

// FixedSchedules lists the recurring schedules, one entry per weekday a
// row applies to.
func (f *Facade) FixedSchedules(ctx context.Context) ([]models.FixedSchedule, error) {
	now := f.nowFunc().In(f.loc)

	var cached []models.FixedSchedule
	if at, ok, _ := f.cacheGet(ctx, cache.KeyFixedSchedules, &cached); ok {
		metrics.IncCache("fixedschedules", "hit")
		if now.Sub(at) > refreshAfter {
			f.scheduleRefresh(now.Year(), now.Month(), 0)
		}
		return cached, nil
	}
	metrics.IncCache("fixedschedules", "miss")

	_, matrix, err := f.monthMatrix(ctx, now.Year(), now.Month())
	if err != nil {
		return nil, err
	}
	schedules := sheet.ParseFixedSchedules(matrix, f.rooms)
	f.cachePut(ctx, cache.KeyFixedSchedules, schedules)
	return schedules, nil
}

type scheduleInput struct {
	room  models.Room
	index int
	start models.Clock
	end   models.Clock
	staff string
}

func (f *Facade) parseScheduleRequest(req models.FixedScheduleRequest) (scheduleInput, error) {
	var in scheduleInput

	room, idx, err := f.roomByID(req.RoomID)
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
	staff := strings.TrimSpace(req.Staff)
	if staff == "" {
		return in, validationError("staff is required")
	}

	return scheduleInput{room: room, index: idx, start: start, end: end, staff: staff}, nil
}

func (in scheduleInput) schedule() models.FixedSchedule {
	return models.FixedSchedule{
		RoomID: in.room.ID,
		Staff:  in.staff,
		Start:  in.start,
		End:    in.end,
		Slot:   sheet.SlotFor(in.start),
	}
}

func (in scheduleInput) rowData() sheet.FixedRowData {
	return sheet.FixedRowData{
		Staff:     in.staff,
		RoomIndex: in.index,
		RoomLabel: in.room.Name,
		Start:     in.start,
		End:       in.end,
	}
}

// checkScheduleFree applies the fixed-schedule conflict rules: the
// candidate repeats every day, so it must clear every one-off booking of
// the month and every other schedule on the room by time of day alone.
// excludeRow skips the row being rewritten in place.
func (f *Facade) checkScheduleFree(candidate models.FixedSchedule, matrix [][]string, year int, month time.Month, excludeRow int) error {
	bookings := sheet.ParseBookings(matrix, year, month, f.rooms, f.loc)
	schedules := excludeScheduleRow(sheet.ParseFixedSchedules(matrix, f.rooms), excludeRow)
	if hit := FindFixedScheduleConflict(candidate, bookings, schedules); hit != nil {
		if hit.Booking != nil {
			return conflictWithBooking(*hit.Booking)
		}
		return conflictWithSchedule(*hit.Schedule)
	}
	return nil
}

// CreateFixedSchedule writes a recurring entry into the fixed region,
// reusing a free row when one exists and inserting one otherwise.
func (f *Facade) CreateFixedSchedule(ctx context.Context, req models.FixedScheduleRequest) (*models.FixedSchedule, error) {
	in, err := f.parseScheduleRequest(req)
	if err != nil {
		return nil, err
	}

	op := f.beginOp(ctx, models.OpScheduleCreate, fmt.Sprintf("%s %s %s-%s", in.room.ID, in.staff, in.start, in.end))

	now := f.nowFunc().In(f.loc)
	year, month := now.Year(), now.Month()
	tab, matrix, err := f.writeTarget(ctx, year, month)
	if err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}

	candidate := in.schedule()
	if err := f.checkScheduleFree(candidate, matrix, year, month, 0); err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}

	row, inserted, err := f.writer.CreateFixedRow(ctx, tab, matrix, in.rowData())
	if err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}
	f.stage(ctx, op, models.StageInserted, fmt.Sprintf("row %d inserted=%v", row, inserted))

	created := candidate
	created.Row = row
	created.ID = models.FixedScheduleID(row, in.room.ID, created.Slot, 0)

	f.publish(events.EventFixedCreated, events.SchedulePayload{
		ScheduleID: created.ID,
		RoomID:     created.RoomID,
		Staff:      created.Staff,
		StartTime:  created.Start.String(),
		EndTime:    created.End.String(),
	})
	f.finishWrite(ctx, op, year, month)
	return &created, nil
}

// UpdateFixedSchedule rewrites the identified row in place. Unlike
// booking updates there is no insert-then-delete dance: the row keeps its
// position, only its cells change.
func (f *Facade) UpdateFixedSchedule(ctx context.Context, id string, req models.FixedScheduleRequest) (*models.FixedSchedule, error) {
	row, _, _, _, err := models.ParseFixedScheduleID(id)
	if err != nil {
		return nil, validationError(err.Error())
	}
	in, err := f.parseScheduleRequest(req)
	if err != nil {
		return nil, err
	}

	op := f.beginOp(ctx, models.OpScheduleUpdate, id)

	now := f.nowFunc().In(f.loc)
	year, month := now.Year(), now.Month()
	tab, matrix, err := f.writeTarget(ctx, year, month)
	if err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}

	if !scheduleRowExists(sheet.ParseFixedSchedules(matrix, f.rooms), row) {
		f.stage(ctx, op, models.StageNotFound, fmt.Sprintf("row %d holds no schedule", row))
		return nil, ErrNotFound
	}
	f.stage(ctx, op, models.StageRowLocated, fmt.Sprintf("row %d", row))

	candidate := in.schedule()
	if err := f.checkScheduleFree(candidate, matrix, year, month, row); err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}

	if err := f.writer.WriteFixedRow(ctx, tab, row, in.rowData()); err != nil {
		f.failOp(ctx, op, err)
		return nil, err
	}
	f.stage(ctx, op, models.StageUpdated, fmt.Sprintf("row %d", row))

	updated := candidate
	updated.Row = row
	updated.ID = models.FixedScheduleID(row, in.room.ID, updated.Slot, 0)

	f.publish(events.EventFixedUpdated, events.SchedulePayload{
		ScheduleID: updated.ID,
		RoomID:     updated.RoomID,
		Staff:      updated.Staff,
		StartTime:  updated.Start.String(),
		EndTime:    updated.End.String(),
	})
	f.finishWrite(ctx, op, year, month)
	return &updated, nil
}

// DeleteFixedSchedule removes the identified row from the fixed region,
// compacting the rows below it.
func (f *Facade) DeleteFixedSchedule(ctx context.Context, id string) error {
	row, roomID, _, _, err := models.ParseFixedScheduleID(id)
	if err != nil {
		return validationError(err.Error())
	}

	op := f.beginOp(ctx, models.OpScheduleDelete, id)

	now := f.nowFunc().In(f.loc)
	year, month := now.Year(), now.Month()
	tab, matrix, err := f.writeTarget(ctx, year, month)
	if err != nil {
		f.failOp(ctx, op, err)
		return err
	}

	if !scheduleRowExists(sheet.ParseFixedSchedules(matrix, f.rooms), row) {
		f.stage(ctx, op, models.StageNotFound, fmt.Sprintf("row %d holds no schedule", row))
		return ErrNotFound
	}
	f.stage(ctx, op, models.StageRowLocated, fmt.Sprintf("row %d", row))

	if err := f.writer.DeleteFixedRow(ctx, tab, matrix, row); err != nil {
		f.failOp(ctx, op, err)
		return err
	}
	f.stage(ctx, op, models.StageDeleted, fmt.Sprintf("row %d", row))

	f.publish(events.EventFixedDeleted, events.SchedulePayload{
		ScheduleID: id,
		RoomID:     roomID,
	})
	f.finishWrite(ctx, op, year, month)
	return nil
}

func scheduleRowExists(schedules []models.FixedSchedule, row int) bool {
	for _, s := range schedules {
		if s.Row == row {
			return true
		}
	}
	return false
}
