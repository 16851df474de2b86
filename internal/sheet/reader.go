package sheet

import (
	"context"

	"github.com/rs/zerolog"

	"roomsheet/internal/logging"
)

type valuesSource interface {
	GetValues(ctx context.Context, rangeName string) ([][]string, error)
}

// Reader fetches the raw cell matrix of a month tab. Display reads go
// through the CSV export first because it costs no API quota; writes are
// always planned against the values API so row indices match what the
// write requests will see.
type Reader struct {
	csv    csvSource
	values valuesSource
	logger zerolog.Logger
}

func NewReader(csv csvSource, values valuesSource, logger *zerolog.Logger) *Reader {
	return &Reader{
		csv:    csv,
		values: values,
		logger: logging.Component(logger, "sheet_reader"),
	}
}

// ReadDisplay returns the tab's rows for read-only consumers. CSV export
// is tried first; any CSV failure falls back to the authenticated values
// API so a flipped sharing setting degrades quota, not availability.
func (r *Reader) ReadDisplay(ctx context.Context, tab Tab) ([][]string, error) {
	rows, err := r.csv.FetchRows(ctx, tab.GID)
	if err == nil {
		return rows, nil
	}
	r.logger.Warn().Err(err).Int64("gid", tab.GID).Msg("csv export failed, falling back to values api")
	return r.values.GetValues(ctx, gridRange(tab.Title))
}

// ReadForWrite returns the tab's rows from the values API only. Row
// numbers derived from this matrix are the ones used in write requests.
func (r *Reader) ReadForWrite(ctx context.Context, tab Tab) ([][]string, error) {
	return r.values.GetValues(ctx, gridRange(tab.Title))
}
