package google

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"roomsheet/internal/config"
	"roomsheet/internal/metrics"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client wraps the Sheets API for a single spreadsheet. All calls go
// through a shared rate limiter so a burst of UI traffic cannot trip the
// per-minute quota, and every error is folded into the package taxonomy.
type Client struct {
	service       *sheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
}

// TabProps is the slice of sheet metadata the locator cares about.
type TabProps struct {
	GID   int64
	Title string
}

func NewClient(ctx context.Context, cfg config.GoogleConfig) (*Client, error) {
	authClient, err := NewAuthClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(authClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}, nil
}

// NewClientWithService wires a prebuilt sheets service, for tests that
// point the API at a local server.
func NewClientWithService(service *sheets.Service, spreadsheetID string) *Client {
	return &Client{
		service:       service,
		spreadsheetID: spreadsheetID,
		limiter:       rate.NewLimiter(rate.Inf, 1),
	}
}

// TabList returns gid and title for every tab of the spreadsheet.
func (c *Client) TabList(ctx context.Context) ([]TabProps, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	spreadsheet, err := c.service.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	metrics.ObserveSheetsCall("metadata_get", err, time.Since(start))
	if err != nil {
		return nil, classify(err)
	}

	tabs := make([]TabProps, 0, len(spreadsheet.Sheets))
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties == nil {
			continue
		}
		tabs = append(tabs, TabProps{GID: sh.Properties.SheetId, Title: sh.Properties.Title})
	}
	return tabs, nil
}

// AddTab creates a worksheet with the given title and returns its gid.
func (c *Client) AddTab(ctx context.Context, title string) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	batch := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}

	start := time.Now()
	resp, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, batch).Context(ctx).Do()
	metrics.ObserveSheetsCall("add_sheet", err, time.Since(start))
	if err != nil {
		return 0, classify(err)
	}

	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			return reply.AddSheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("add sheet: reply carries no sheet id")
}

// GetValues reads a range and renders every cell as a string. This is the
// authoritative read path: row indices here line up with what the batch
// API mutates, unlike the CSV export.
func (c *Client) GetValues(ctx context.Context, rangeA1 string) ([][]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, rangeA1).Context(ctx).Do()
	metrics.ObserveSheetsCall("values_get", err, time.Since(start))
	if err != nil {
		return nil, classify(err)
	}

	return toStringMatrix(resp.Values), nil
}

// UpdateValues writes a block of values. USER_ENTERED keeps the sheet
// behaving as if a human typed the cells, so times stay times and day
// numbers stay numbers.
func (c *Client) UpdateValues(ctx context.Context, rangeA1 string, values [][]interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	valueRange := &sheets.ValueRange{Values: values}

	start := time.Now()
	_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, rangeA1, valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	metrics.ObserveSheetsCall("values_update", err, time.Since(start))
	return classify(err)
}

// ClearValues blanks a range without touching formatting.
func (c *Client) ClearValues(ctx context.Context, rangeA1 string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	_, err := c.service.Spreadsheets.Values.Clear(c.spreadsheetID, rangeA1, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	metrics.ObserveSheetsCall("values_clear", err, time.Since(start))
	return classify(err)
}

// InsertRow adds one structural row at the 1-based sheet row, pushing the
// existing row down. Formatting is deliberately not inherited from the row
// above; the caller copies formatting explicitly afterwards.
func (c *Client) InsertRow(ctx context.Context, gid int64, row int) error {
	return c.batchUpdate(ctx, "insert_row", &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:    gid,
				Dimension:  "ROWS",
				StartIndex: int64(row - 1),
				EndIndex:   int64(row),
			},
			InheritFromBefore: false,
		},
	})
}

// DeleteRow removes one structural row at the 1-based sheet row.
func (c *Client) DeleteRow(ctx context.Context, gid int64, row int) error {
	return c.batchUpdate(ctx, "delete_row", &sheets.Request{
		DeleteDimension: &sheets.DeleteDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:    gid,
				Dimension:  "ROWS",
				StartIndex: int64(row - 1),
				EndIndex:   int64(row),
			},
		},
	})
}

// CopyRowFormat replicates formatting only, not values, from one row to
// another within a tab.
func (c *Client) CopyRowFormat(ctx context.Context, gid int64, fromRow, toRow int) error {
	return c.batchUpdate(ctx, "copy_format", &sheets.Request{
		CopyPaste: &sheets.CopyPasteRequest{
			Source: &sheets.GridRange{
				SheetId:       gid,
				StartRowIndex: int64(fromRow - 1),
				EndRowIndex:   int64(fromRow),
			},
			Destination: &sheets.GridRange{
				SheetId:       gid,
				StartRowIndex: int64(toRow - 1),
				EndRowIndex:   int64(toRow),
			},
			PasteType:        "PASTE_FORMAT",
			PasteOrientation: "NORMAL",
		},
	})
}

func (c *Client) batchUpdate(ctx context.Context, kind string, requests ...*sheets.Request) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	batch := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}

	start := time.Now()
	_, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, batch).Context(ctx).Do()
	metrics.ObserveSheetsCall(kind, err, time.Since(start))
	return classify(err)
}

// SpreadsheetURL returns the browser URL of the spreadsheet, pointed at a
// tab when gid is non-negative.
func (c *Client) SpreadsheetURL(gid int64) string {
	base := "https://docs.google.com/spreadsheets/d/" + c.spreadsheetID + "/edit"
	if gid >= 0 {
		return base + "#gid=" + strconv.FormatInt(gid, 10)
	}
	return base
}

// toStringMatrix renders the API's loosely typed cells as strings, the one
// shape the interpreters consume. Numbers lose any float artifacts so a
// date cell reads "5", not "5.0".
func toStringMatrix(values [][]interface{}) [][]string {
	matrix := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cellString(cell))
		}
		matrix = append(matrix, cells)
	}
	return matrix
}

func cellString(cell interface{}) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
