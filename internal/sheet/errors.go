package sheet

import (
	"errors"
	"fmt"
	"time"
)

// ErrSheetNotFound is the sentinel for months whose tab does not exist.
// The concrete error is always a *NotFoundError; errors.Is against the
// sentinel works through its Is method.
var ErrSheetNotFound = errors.New("month tab not found")

// NotFoundError tells the caller which month is missing and what tab names
// a human should create, so the UI can render exact instructions.
type NotFoundError struct {
	Year      int
	Month     time.Month
	Suggested []string
}

func newNotFound(year int, month time.Month) *NotFoundError {
	upper, title := monthTitles(year, month)
	return &NotFoundError{
		Year:      year,
		Month:     month,
		Suggested: []string{upper, title},
	}
}

func (e *NotFoundError) Error() string {
	if len(e.Suggested) > 0 {
		return fmt.Sprintf("no tab for %s %d: create a tab named %q", e.Month, e.Year, e.Suggested[0])
	}
	return fmt.Sprintf("no tab for %s %d", e.Month, e.Year)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrSheetNotFound
}
