package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"roomsheet/internal/cache"
	"roomsheet/internal/google"
	"roomsheet/internal/models"
	"roomsheet/internal/sheet"
)

// fakeSpreadsheet stands in for the Sheets endpoints: CSV export, metadata
// listing and the values/batch APIs all read and mutate the same in-memory
// tab matrices, so whole booking flows run against realistic grid state.
type fakeSpreadsheet struct {
	mu   sync.Mutex
	tabs []*fakeTab

	insertErr   error
	updateErr   error
	deleteErr   error
	deleteAfter int

	deletes      int
	formatCopies []formatCopy
}

type fakeTab struct {
	gid    int64
	title  string
	matrix [][]string
}

type formatCopy struct {
	gid     int64
	fromRow int
	toRow   int
}

func newFakeSpreadsheet(tabs ...*fakeTab) *fakeSpreadsheet {
	return &fakeSpreadsheet{tabs: tabs, deleteAfter: -1}
}

// failDeletesAfter lets n deletions succeed and fails every one after.
func (s *fakeSpreadsheet) failDeletesAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteAfter = n
	s.deleteErr = err
}

func (s *fakeSpreadsheet) byGID(gid int64) *fakeTab {
	for _, t := range s.tabs {
		if t.gid == gid {
			return t
		}
	}
	return nil
}

func (s *fakeSpreadsheet) byTitle(title string) *fakeTab {
	for _, t := range s.tabs {
		if t.title == title {
			return t
		}
	}
	return nil
}

func (s *fakeSpreadsheet) matrixOf(t *testing.T, gid int64) [][]string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	tab := s.byGID(gid)
	if tab == nil {
		t.Fatalf("no tab with gid %d", gid)
	}
	return copyMatrix(tab.matrix)
}

func copyMatrix(matrix [][]string) [][]string {
	out := make([][]string, len(matrix))
	for i, row := range matrix {
		out[i] = append([]string(nil), row...)
	}
	return out
}

func (s *fakeSpreadsheet) FetchRows(ctx context.Context, gid int64) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tab := s.byGID(gid)
	if tab == nil {
		return nil, fmt.Errorf("csv export: no tab with gid %d", gid)
	}
	return copyMatrix(tab.matrix), nil
}

func (s *fakeSpreadsheet) TabList(ctx context.Context) ([]google.TabProps, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := make([]google.TabProps, 0, len(s.tabs))
	for _, t := range s.tabs {
		props = append(props, google.TabProps{GID: t.gid, Title: t.title})
	}
	return props, nil
}

func splitRange(rangeA1 string) (title, cells string, err error) {
	i := strings.LastIndex(rangeA1, "!")
	if i < 0 {
		return "", "", fmt.Errorf("bad range %q", rangeA1)
	}
	title = strings.TrimSuffix(strings.TrimPrefix(rangeA1[:i], "'"), "'")
	return strings.ReplaceAll(title, "''", "'"), rangeA1[i+1:], nil
}

func (s *fakeSpreadsheet) GetValues(ctx context.Context, rangeA1 string) ([][]string, error) {
	title, _, err := splitRange(rangeA1)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tab := s.byTitle(title)
	if tab == nil {
		return nil, fmt.Errorf("values get: no tab titled %q", title)
	}
	return copyMatrix(tab.matrix), nil
}

var cellsPattern = regexp.MustCompile(`^([A-Z])(\d+):[A-Z]\d+$`)

func (s *fakeSpreadsheet) UpdateValues(ctx context.Context, rangeA1 string, values [][]interface{}) error {
	title, cells, err := splitRange(rangeA1)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	m := cellsPattern.FindStringSubmatch(cells)
	if m == nil {
		return fmt.Errorf("unsupported range %q", rangeA1)
	}
	tab := s.byTitle(title)
	if tab == nil {
		return fmt.Errorf("values update: no tab titled %q", title)
	}
	startCol := int(m[1][0] - 'A')
	startRow, _ := strconv.Atoi(m[2])
	for r, line := range values {
		tab.setCells(startRow+r, startCol, line)
	}
	return nil
}

func (t *fakeTab) setCells(row, startCol int, line []interface{}) {
	for len(t.matrix) < row {
		t.matrix = append(t.matrix, make([]string, 9))
	}
	cells := t.matrix[row-1]
	for len(cells) < startCol+len(line) {
		cells = append(cells, "")
	}
	for i, v := range line {
		cells[startCol+i] = fmt.Sprintf("%v", v)
	}
	t.matrix[row-1] = cells
}

func (s *fakeSpreadsheet) InsertRow(ctx context.Context, gid int64, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	tab := s.byGID(gid)
	if tab == nil {
		return fmt.Errorf("insert: no tab with gid %d", gid)
	}
	for len(tab.matrix) < row-1 {
		tab.matrix = append(tab.matrix, make([]string, 9))
	}
	tab.matrix = append(tab.matrix, nil)
	copy(tab.matrix[row:], tab.matrix[row-1:])
	tab.matrix[row-1] = make([]string, 9)
	return nil
}

func (s *fakeSpreadsheet) DeleteRow(ctx context.Context, gid int64, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil && s.deleteAfter >= 0 && s.deletes >= s.deleteAfter {
		return s.deleteErr
	}
	tab := s.byGID(gid)
	if tab == nil {
		return fmt.Errorf("delete: no tab with gid %d", gid)
	}
	if row < 1 || row > len(tab.matrix) {
		return fmt.Errorf("delete: row %d out of range", row)
	}
	tab.matrix = append(tab.matrix[:row-1], tab.matrix[row:]...)
	s.deletes++
	return nil
}

func (s *fakeSpreadsheet) CopyRowFormat(ctx context.Context, gid int64, fromRow, toRow int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formatCopies = append(s.formatCopies, formatCopy{gid: gid, fromRow: fromRow, toRow: toRow})
	return nil
}

func (s *fakeSpreadsheet) SpreadsheetURL(gid int64) string {
	return fmt.Sprintf("https://sheets.example/edit#gid=%d", gid)
}

// taskRecorder captures scheduler calls instead of running them.
type taskRecorder struct {
	mu    sync.Mutex
	tasks []recordedTask
}

type recordedTask struct {
	kind    string
	opID    int64
	gid     int64
	fromRow int
	toRow   int
	year    int
	month   time.Month
	delay   time.Duration
}

func (r *taskRecorder) EnqueueFormatCopy(opID, gid int64, fromRow, toRow int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, recordedTask{kind: "format_copy", opID: opID, gid: gid, fromRow: fromRow, toRow: toRow})
}

func (r *taskRecorder) EnqueueCacheRefresh(year int, month time.Month, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, recordedTask{kind: "cache_refresh", year: year, month: month, delay: delay})
}

func (r *taskRecorder) byKind(kind string) []recordedTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedTask
	for _, t := range r.tasks {
		if t.kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// eventRecorder captures published events with their typed payloads.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	eventType string
	payload   interface{}
}

func (r *eventRecorder) PublishJSON(eventType string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{eventType: eventType, payload: payload})
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.eventType)
	}
	return out
}

func (r *eventRecorder) last(eventType string) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].eventType == eventType {
			return r.events[i].payload, true
		}
	}
	return nil, false
}

// memJournal keeps operations in a slice and records every stage a write
// passed through, so tests can assert the whole sequence.
type memJournal struct {
	mu     sync.Mutex
	ops    []models.Operation
	stages map[int64][]string
}

func newMemJournal() *memJournal {
	return &memJournal{stages: make(map[int64][]string)}
}

func (j *memJournal) RecordOperation(ctx context.Context, op *models.Operation) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	op.ID = int64(len(j.ops) + 1)
	j.ops = append(j.ops, *op)
	j.stages[op.ID] = append(j.stages[op.ID], op.Stage)
	return op.ID, nil
}

func (j *memJournal) UpdateStage(ctx context.Context, opID int64, stage, detail string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.ops {
		if j.ops[i].ID == opID {
			j.ops[i].Stage = stage
			j.ops[i].Detail = detail
			j.stages[opID] = append(j.stages[opID], stage)
			return nil
		}
	}
	return fmt.Errorf("no operation %d", opID)
}

func (j *memJournal) RecentOperations(ctx context.Context, limit int) ([]*models.Operation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*models.Operation
	for i := len(j.ops) - 1; i >= 0 && len(out) < limit; i-- {
		op := j.ops[i]
		out = append(out, &op)
	}
	return out, nil
}

func (j *memJournal) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (j *memJournal) stagesOf(opID int64) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.stages[opID]...)
}

const (
	testGID   = int64(77)
	testTitle = "SEPTEMBER 2026"
)

// testTime pins the clock early in September 2026, so the fixture rows on
// the 5th and the 14th lie in the future.
var testTime = time.Date(2026, time.September, 3, 12, 0, 0, 0, time.UTC)

// septemberMatrix builds the fixture tab: title banner, one recurring
// schedule, one free line, the header, then two booking rows.
func septemberMatrix() [][]string {
	return [][]string{
		{"SEPTEMBER 2026", "", "", "", "", "", "", "", ""},
		{"", "", "Team A", "Nha Trang", "", "9:00", "9:30", "", ""},
		{"", "", "", "", "", "", "", "", ""},
		{"DATE", "DAY", "BOOKING STAFF", "MEETING ROOM NHA TRANG", "MEETING ROOM DA LAT", "TIME START", "TIME END", "TIME START", "TIME END"},
		{"5", "Sat", "Marketing sync", "", "Da Lat", "10:00", "10:30", "", ""},
		{"14", "Mon", "Standup", "Nha Trang", "", "", "", "14:00", "15:00"},
	}
}

type testEnv struct {
	api     *fakeSpreadsheet
	store   *cache.MemoryStore
	tasks   *taskRecorder
	bus     *eventRecorder
	journal *memJournal
	facade  *Facade
}

func newTestEnv(t *testing.T, tabs ...*fakeTab) *testEnv {
	t.Helper()
	if len(tabs) == 0 {
		tabs = []*fakeTab{{gid: testGID, title: testTitle, matrix: septemberMatrix()}}
	}
	api := newFakeSpreadsheet(tabs...)
	env := &testEnv{
		api:     api,
		store:   cache.NewMemoryStore(),
		tasks:   &taskRecorder{},
		bus:     &eventRecorder{},
		journal: newMemJournal(),
	}

	logger := zerolog.Nop()
	env.facade = NewFacade(Deps{
		Rooms:       models.DefaultRooms(),
		Locator:     sheet.NewLocator(api, api, nil, time.UTC, &logger),
		Reader:      sheet.NewReader(api, api, &logger),
		Writer:      sheet.NewWriter(api, &logger),
		URLs:        api,
		Store:       env.store,
		Journal:     env.journal,
		Bus:         env.bus,
		Tasks:       env.tasks,
		Location:    time.UTC,
		SettleDelay: 2 * time.Second,
	}, &logger)
	env.facade.nowFunc = func() time.Time { return testTime }
	return env
}
