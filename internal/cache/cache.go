package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roomsheet/internal/domain"
)

// One cache entry per data kind. Bookings carry the month in the key so
// browsing another month never evicts the current one; fixed schedules
// always come from the current tab and need no scope.
const (
	KeyRooms          = "rooms"
	KeyTimeSlots      = "timeslots"
	KeyFixedSchedules = "fixedschedules"
)

func BookingsKey(year int, month time.Month) string {
	return fmt.Sprintf("bookings:%04d-%02d", year, int(month))
}

// Envelope wraps every cached payload with the time it was produced.
// Staleness is the reader's call; no store enforces an expiry of its own.
type Envelope struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// PutJSON stores value wrapped in an Envelope stamped with updatedAt.
func PutJSON(ctx context.Context, store domain.Store, key string, value interface{}, updatedAt time.Time) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value %s: %w", key, err)
	}
	env, err := json.Marshal(Envelope{UpdatedAt: updatedAt, Data: data})
	if err != nil {
		return fmt.Errorf("marshal cache envelope %s: %w", key, err)
	}
	return store.Set(ctx, key, env)
}

// GetJSON loads an Envelope and unmarshals its payload into target.
// Missing and undecodable entries both count as a miss; junk is deleted
// so the next refresh replaces it instead of tripping over it again.
func GetJSON(ctx context.Context, store domain.Store, key string, target interface{}) (time.Time, bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		_ = store.Delete(ctx, key)
		return time.Time{}, false, nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		_ = store.Delete(ctx, key)
		return time.Time{}, false, nil
	}
	return env.UpdatedAt, true, nil
}
