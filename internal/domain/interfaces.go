package domain

import (
	"context"
	"time"

	"roomsheet/internal/models"
)

// Store is the byte-level cache behind the read paths. Implementations
// never interpret the payload; the service layer owns the envelope.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Journal records write operations and their stage transitions.
type Journal interface {
	RecordOperation(ctx context.Context, op *models.Operation) (int64, error)
	UpdateStage(ctx context.Context, opID int64, stage, detail string) error
	RecentOperations(ctx context.Context, limit int) ([]*models.Operation, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier pushes short operational messages to people.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// TaskScheduler hands deferred sheet work to the background worker:
// formatting copies after inserts and delayed cache refreshes after any
// mutation. opID ties the formatting task back to its journal entry.
type TaskScheduler interface {
	EnqueueFormatCopy(opID, gid int64, fromRow, toRow int)
	EnqueueCacheRefresh(year int, month time.Month, delay time.Duration)
}

type BookingService interface {
	Rooms(ctx context.Context) []models.Room
	Bookings(ctx context.Context, year int, month time.Month) ([]models.Booking, error)
	TimeSlots(ctx context.Context) []models.TimeSlot
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	UpdateBooking(ctx context.Context, id, date string, req models.BookingRequest) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id, date string) error
	SheetURL(ctx context.Context) string
}

type ScheduleService interface {
	FixedSchedules(ctx context.Context) ([]models.FixedSchedule, error)
	CreateFixedSchedule(ctx context.Context, req models.FixedScheduleRequest) (*models.FixedSchedule, error)
	UpdateFixedSchedule(ctx context.Context, id string, req models.FixedScheduleRequest) (*models.FixedSchedule, error)
	DeleteFixedSchedule(ctx context.Context, id string) error
}
