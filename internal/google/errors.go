package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrAuth means no usable credential is configured or the API rejected
	// the one we have. Not retryable without operator action.
	ErrAuth = errors.New("google authentication failed")

	// ErrTransient covers network and API failures that a later retry may
	// resolve. Surfaced to the caller, never silently swallowed.
	ErrTransient = errors.New("transient google api failure")
)

// classify folds a raw API error into the package taxonomy so callers can
// branch with errors.Is instead of inspecting googleapi internals.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
