package service

import (
	"errors"
	"fmt"

	"roomsheet/internal/models"
)

var (
	// ErrConflict is the sentinel behind every ConflictError.
	ErrConflict = errors.New("slot already taken")
	// ErrNotFound means the id no longer matches any row in the sheet.
	ErrNotFound = errors.New("booking not found")
	// ErrValidation wraps all bad-input failures.
	ErrValidation = errors.New("invalid request")
	// ErrPastDate rejects writes whose start lies behind the grace window.
	ErrPastDate = errors.New("start time is in the past")
)

// ConflictError names the party already holding the slot, with enough
// detail for a client to show who is in the way and when.
type ConflictError struct {
	RoomID  string `json:"room_id"`
	Title   string `json:"title"`
	Date    string `json:"date,omitempty"`
	Start   string `json:"start"`
	End     string `json:"end"`
	IsFixed bool   `json:"is_fixed"`
}

func (e *ConflictError) Error() string {
	kind := "booking"
	if e.IsFixed {
		kind = "fixed schedule"
	}
	if e.Date != "" {
		return fmt.Sprintf("conflicts with %s %q on %s (%s-%s)", kind, e.Title, e.Date, e.Start, e.End)
	}
	return fmt.Sprintf("conflicts with %s %q (%s-%s)", kind, e.Title, e.Start, e.End)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func conflictWithBooking(b models.Booking) *ConflictError {
	return &ConflictError{
		RoomID:  b.RoomID,
		Title:   b.Title,
		Date:    b.Start.Format("2006-01-02"),
		Start:   models.ClockOf(b.Start).String(),
		End:     models.ClockOf(b.End).String(),
		IsFixed: b.IsFixed,
	}
}

func conflictWithSchedule(s models.FixedSchedule) *ConflictError {
	return &ConflictError{
		RoomID:  s.RoomID,
		Title:   s.Staff,
		Start:   s.Start.String(),
		End:     s.End.String(),
		IsFixed: true,
	}
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
