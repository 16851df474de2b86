package service

import (
	"context"
	"time"

	"roomsheet/internal/cache"
	"roomsheet/internal/metrics"
	"roomsheet/internal/sheet"
)

// RefreshMonth re-reads one month and replaces the cache entries its tab
// feeds. The worker calls this after the settle delay that follows every
// mutation, and again whenever a served entry has grown stale.
func (f *Facade) RefreshMonth(ctx context.Context, year int, month time.Month) error {
	now := f.nowFunc().In(f.loc)
	if year == 0 || month == 0 {
		year, month = now.Year(), now.Month()
	}

	_, matrix, err := f.monthMatrix(ctx, year, month)
	if err != nil {
		return err
	}

	schedules := sheet.ParseFixedSchedules(matrix, f.rooms)
	bookings := sheet.ParseBookings(matrix, year, month, f.rooms, f.loc)
	bookings = append(bookings, sheet.MaterializeFixedSchedules(schedules, year, month, now)...)

	f.cachePut(ctx, cache.BookingsKey(year, month), bookings)
	if year == now.Year() && month == now.Month() {
		f.cachePut(ctx, cache.KeyFixedSchedules, schedules)
	}
	metrics.IncCache("bookings", "refresh")
	return nil
}
