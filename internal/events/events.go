package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated     = "booking_created"
	EventBookingUpdated     = "booking_updated"
	EventBookingDeleted     = "booking_deleted"
	EventFixedCreated       = "fixed_schedule_created"
	EventFixedUpdated       = "fixed_schedule_updated"
	EventFixedDeleted       = "fixed_schedule_deleted"
	EventStaleCleanupFailed = "stale_row_cleanup_failed"
	EventFormattingFailed   = "formatting_failed"
	EventMonthTabMissing    = "month_tab_missing"
)

// BookingEventPayload is the booking snapshot handed to event consumers.
type BookingEventPayload struct {
	BookingID string    `json:"booking_id"`
	RoomID    string    `json:"room_id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// SchedulePayload describes a fixed-schedule change.
type SchedulePayload struct {
	ScheduleID string `json:"schedule_id"`
	RoomID     string `json:"room_id"`
	Staff      string `json:"staff"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// FailurePayload describes a swallowed best-effort failure that an
// operator may still want to hear about.
type FailurePayload struct {
	Operation string `json:"operation"`
	TargetID  string `json:"target_id"`
	Detail    string `json:"detail"`
	Rows      []int  `json:"rows,omitempty"`
}

// TabMissingPayload reports a month whose tab could not be resolved.
type TabMissingPayload struct {
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	Suggested []string `json:"suggested"`
}

// Event is a lightweight in-process domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event. A nil bus is
// a no-op so components can treat the bus as optional.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
