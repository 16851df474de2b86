package google

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultExportBase = "https://docs.google.com/spreadsheets/d"

// CSVFetcher reads tabs through the public CSV export endpoint. No auth,
// eventually consistent, cheap enough for polling and for probing gids.
// Never use its row numbering to drive a write; only the values API rows
// are aligned with what the batch API mutates.
type CSVFetcher struct {
	// BaseURL is swappable so tests can point at a local server.
	BaseURL       string
	spreadsheetID string
	httpClient    *http.Client
}

func NewCSVFetcher(spreadsheetID string) *CSVFetcher {
	return &CSVFetcher{
		BaseURL:       defaultExportBase,
		spreadsheetID: spreadsheetID,
		httpClient:    &http.Client{Timeout: 20 * time.Second},
	}
}

// FetchRows downloads one tab as CSV and returns the cell matrix. Rows may
// be ragged; callers index defensively.
func (f *CSVFetcher) FetchRows(ctx context.Context, gid int64) ([][]string, error) {
	url := fmt.Sprintf("%s/%s/export?format=csv&gid=%d", f.BaseURL, f.spreadsheetID, gid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build csv request: %v", ErrTransient, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: csv export: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: csv export returned status %d for gid %d", ErrTransient, resp.StatusCode, gid)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read csv body: %v", ErrTransient, err)
	}

	// A permission wall serves an HTML login page with a 200.
	text := string(body)
	if strings.Contains(strings.ToLower(text), "<!doctype html") || strings.HasPrefix(strings.TrimSpace(text), "<") {
		return nil, fmt.Errorf("%w: gid %d is not accessible as csv", ErrTransient, gid)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv for gid %d: %v", ErrTransient, gid, err)
	}
	return rows, nil
}
