package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roomsheet/internal/cache"
	"roomsheet/internal/domain"
	"roomsheet/internal/events"
	"roomsheet/internal/logging"
	"roomsheet/internal/metrics"
	"roomsheet/internal/models"
	"roomsheet/internal/sheet"
)

// refreshAfter bounds how stale a served cache entry may be before a
// background re-read is scheduled alongside it.
const refreshAfter = 30 * time.Second

// URLSource yields the browser URL of the spreadsheet, optionally anchored
// on a tab. The Google client satisfies this.
type URLSource interface {
	SpreadsheetURL(gid int64) string
}

// Deps bundles the facade's collaborators. Journal, Bus, Tasks and Store
// may be nil; the facade then skips the corresponding side effects.
type Deps struct {
	Rooms       []models.Room
	Locator     *sheet.Locator
	Reader      *sheet.Reader
	Writer      *sheet.Writer
	URLs        URLSource
	Store       domain.Store
	Journal     domain.Journal
	Bus         domain.EventPublisher
	Tasks       domain.TaskScheduler
	Location    *time.Location
	SettleDelay time.Duration
}

// Facade is the one entry point the transport layer talks to. It owns the
// read cache, the conflict rules and the multi-step write sequences, and
// hands deferred work (format copies, cache refreshes) to the scheduler.
type Facade struct {
	rooms   []models.Room
	locator *sheet.Locator
	reader  *sheet.Reader
	writer  *sheet.Writer
	urls    URLSource
	store   domain.Store
	journal domain.Journal
	bus     domain.EventPublisher
	tasks   domain.TaskScheduler
	loc     *time.Location
	settle  time.Duration
	logger  zerolog.Logger

	nowFunc func() time.Time
}

func NewFacade(deps Deps, logger *zerolog.Logger) *Facade {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Facade{
		rooms:   deps.Rooms,
		locator: deps.Locator,
		reader:  deps.Reader,
		writer:  deps.Writer,
		urls:    deps.URLs,
		store:   deps.Store,
		journal: deps.Journal,
		bus:     deps.Bus,
		tasks:   deps.Tasks,
		loc:     loc,
		settle:  deps.SettleDelay,
		logger:  logging.Component(logger, "service"),
		nowFunc: time.Now,
	}
}

// Rooms serves the room catalogue. The catalogue comes from configuration,
// so a cache miss never fails; it just re-seeds the entry.
func (f *Facade) Rooms(ctx context.Context) []models.Room {
	var cached []models.Room
	if _, ok, err := f.cacheGet(ctx, cache.KeyRooms, &cached); err == nil && ok && len(cached) > 0 {
		metrics.IncCache("rooms", "hit")
		return cached
	}
	metrics.IncCache("rooms", "miss")
	f.cachePut(ctx, cache.KeyRooms, f.rooms)
	return f.rooms
}

// TimeSlots serves the half-hour grid the booking form offers.
func (f *Facade) TimeSlots(ctx context.Context) []models.TimeSlot {
	var cached []models.TimeSlot
	if _, ok, err := f.cacheGet(ctx, cache.KeyTimeSlots, &cached); err == nil && ok && len(cached) > 0 {
		metrics.IncCache("timeslots", "hit")
		return cached
	}
	metrics.IncCache("timeslots", "miss")
	slots := BuildTimeSlots()
	f.cachePut(ctx, cache.KeyTimeSlots, slots)
	return slots
}

// SheetURL returns the link into the spreadsheet, anchored on the current
// month's tab when that tab is resolvable.
func (f *Facade) SheetURL(ctx context.Context) string {
	now := f.nowFunc().In(f.loc)
	if tab, err := f.locator.ResolveTab(ctx, now.Year(), now.Month()); err == nil {
		return f.urls.SpreadsheetURL(tab.GID)
	}
	return f.urls.SpreadsheetURL(0)
}

// monthMatrix resolves a month's tab and reads its display grid. A missing
// tab is announced on the event bus before the error is returned.
func (f *Facade) monthMatrix(ctx context.Context, year int, month time.Month) (sheet.Tab, [][]string, error) {
	tab, err := f.locator.ResolveTab(ctx, year, month)
	if err != nil {
		f.reportMissingTab(err)
		return sheet.Tab{}, nil, err
	}
	matrix, err := f.reader.ReadDisplay(ctx, tab)
	if err != nil {
		return sheet.Tab{}, nil, err
	}
	return tab, matrix, nil
}

// writeTarget is monthMatrix's counterpart for mutations: same tab
// resolution, but the grid comes from the values API so row indexes match
// what the write requests will address.
func (f *Facade) writeTarget(ctx context.Context, year int, month time.Month) (sheet.Tab, [][]string, error) {
	tab, err := f.locator.ResolveTab(ctx, year, month)
	if err != nil {
		f.reportMissingTab(err)
		return sheet.Tab{}, nil, err
	}
	matrix, err := f.reader.ReadForWrite(ctx, tab)
	if err != nil {
		return sheet.Tab{}, nil, err
	}
	return tab, matrix, nil
}

func (f *Facade) reportMissingTab(err error) {
	var nf *sheet.NotFoundError
	if errors.As(err, &nf) {
		f.publish(events.EventMonthTabMissing, events.TabMissingPayload{
			Year:      nf.Year,
			Month:     int(nf.Month),
			Suggested: nf.Suggested,
		})
	}
}

func (f *Facade) roomByID(id string) (models.Room, int, error) {
	for i, r := range f.rooms {
		if r.ID == id {
			return r, i, nil
		}
	}
	return models.Room{}, 0, validationError(fmt.Sprintf("unknown room %q", id))
}

// checkNotPast rejects writes whose start instant lies behind now minus
// the grace window, so a meeting that just began can still be booked.
func (f *Facade) checkNotPast(start time.Time) error {
	if start.Before(f.nowFunc().In(f.loc).Add(-models.GracePeriod)) {
		return ErrPastDate
	}
	return nil
}

func (f *Facade) parseDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), f.loc)
	if err != nil {
		return time.Time{}, validationError(fmt.Sprintf("bad date %q", raw))
	}
	return date, nil
}

func (f *Facade) cacheGet(ctx context.Context, key string, target interface{}) (time.Time, bool, error) {
	if f.store == nil {
		return time.Time{}, false, nil
	}
	at, ok, err := cache.GetJSON(ctx, f.store, key, target)
	if err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	return at, ok, err
}

func (f *Facade) cachePut(ctx context.Context, key string, value interface{}) {
	if f.store == nil {
		return
	}
	if err := cache.PutJSON(ctx, f.store, key, value, f.nowFunc()); err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// opRef ties a multi-step write to its journal entry and metric series.
type opRef struct {
	id   int64
	kind string
}

func (f *Facade) beginOp(ctx context.Context, kind, targetID string) opRef {
	metrics.IncWriteStage(kind, models.StageValidated)
	op := opRef{kind: kind}
	if f.journal == nil {
		return op
	}
	rec := &models.Operation{Kind: kind, TargetID: targetID, Stage: models.StageValidated}
	id, err := f.journal.RecordOperation(ctx, rec)
	if err != nil {
		f.logger.Warn().Err(err).Str("kind", kind).Msg("journal record failed")
		return op
	}
	op.id = id
	return op
}

func (f *Facade) stage(ctx context.Context, op opRef, stage, detail string) {
	metrics.IncWriteStage(op.kind, stage)
	if f.journal == nil || op.id == 0 {
		return
	}
	if err := f.journal.UpdateStage(ctx, op.id, stage, detail); err != nil {
		f.logger.Warn().Err(err).Int64("op_id", op.id).Str("stage", stage).Msg("journal stage update failed")
	}
}

func (f *Facade) failOp(ctx context.Context, op opRef, cause error) {
	f.stage(ctx, op, models.StageFailed, cause.Error())
}

func (f *Facade) publish(eventType string, payload interface{}) {
	if f.bus == nil {
		return
	}
	if err := f.bus.PublishJSON(eventType, payload); err != nil {
		f.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

// finishWrite closes out a successful mutation: the stale cache entries
// keep serving reads while a refresh is scheduled for after the sheet has
// settled.
func (f *Facade) finishWrite(ctx context.Context, op opRef, year int, month time.Month) {
	f.scheduleRefresh(year, month, f.settle)
	f.stage(ctx, op, models.StageCacheInvalidated, "refresh scheduled")
}

func (f *Facade) scheduleRefresh(year int, month time.Month, delay time.Duration) {
	if f.tasks == nil {
		return
	}
	f.tasks.EnqueueCacheRefresh(year, month, delay)
}
