package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"roomsheet/internal/events"
	"roomsheet/internal/models"
)

type formatCall struct {
	gid     int64
	fromRow int
	toRow   int
}

type fakeFormatter struct {
	mu    sync.Mutex
	err   error
	calls []formatCall
}

func (f *fakeFormatter) CopyRowFormat(ctx context.Context, gid int64, fromRow, toRow int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, formatCall{gid: gid, fromRow: fromRow, toRow: toRow})
	return f.err
}

func (f *fakeFormatter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type refreshCall struct {
	year  int
	month time.Month
}

type fakeRefresher struct {
	mu    sync.Mutex
	err   error
	calls []refreshCall
}

func (f *fakeRefresher) RefreshMonth(ctx context.Context, year int, month time.Month) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, refreshCall{year: year, month: month})
	return f.err
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type stageUpdate struct {
	opID   int64
	stage  string
	detail string
}

type fakeJournal struct {
	mu      sync.Mutex
	updates []stageUpdate
}

func (f *fakeJournal) RecordOperation(ctx context.Context, op *models.Operation) (int64, error) {
	return 0, nil
}

func (f *fakeJournal) UpdateStage(ctx context.Context, opID int64, stage, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, stageUpdate{opID: opID, stage: stage, detail: detail})
	return nil
}

func (f *fakeJournal) RecentOperations(ctx context.Context, limit int) ([]*models.Operation, error) {
	return nil, nil
}

func (f *fakeJournal) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type publishedEvent struct {
	eventType string
	payload   []byte
}

type fakeBus struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakeBus) PublishJSON(eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{eventType: eventType, payload: raw})
	return nil
}

func newTestWorker(formatter Formatter, refresher Refresher, journal *fakeJournal, retry RetryPolicy) *Worker {
	logger := zerolog.Nop()
	if journal == nil {
		return New(formatter, refresher, nil, nil, retry, &logger)
	}
	return New(formatter, refresher, journal, nil, retry, &logger)
}

func TestProcessFormatCopy(t *testing.T) {
	formatter := &fakeFormatter{}
	journal := &fakeJournal{}
	w := newTestWorker(formatter, &fakeRefresher{}, journal, RetryPolicy{})

	w.process(context.Background(), Task{Type: TaskFormatCopy, OpID: 42, GID: 9, FromRow: 4, ToRow: 5})

	if len(formatter.calls) != 1 {
		t.Fatalf("expected 1 format call, got %d", len(formatter.calls))
	}
	if formatter.calls[0] != (formatCall{gid: 9, fromRow: 4, toRow: 5}) {
		t.Fatalf("unexpected call: %+v", formatter.calls[0])
	}
	if len(journal.updates) != 1 {
		t.Fatalf("expected 1 journal update, got %d", len(journal.updates))
	}
	if journal.updates[0].opID != 42 || journal.updates[0].stage != models.StageFormatApplied {
		t.Fatalf("unexpected journal update: %+v", journal.updates[0])
	}
}

func TestProcessFormatCopyWithoutJournal(t *testing.T) {
	formatter := &fakeFormatter{}
	w := newTestWorker(formatter, &fakeRefresher{}, nil, RetryPolicy{})

	w.process(context.Background(), Task{Type: TaskFormatCopy, GID: 9, FromRow: 4, ToRow: 5})

	if len(formatter.calls) != 1 {
		t.Fatalf("expected 1 format call, got %d", len(formatter.calls))
	}
}

func TestProcessCacheRefresh(t *testing.T) {
	refresher := &fakeRefresher{}
	w := newTestWorker(&fakeFormatter{}, refresher, nil, RetryPolicy{})

	w.process(context.Background(), Task{Type: TaskCacheRefresh, Year: 2026, Month: time.September})

	if len(refresher.calls) != 1 {
		t.Fatalf("expected 1 refresh call, got %d", len(refresher.calls))
	}
	if refresher.calls[0] != (refreshCall{year: 2026, month: time.September}) {
		t.Fatalf("unexpected call: %+v", refresher.calls[0])
	}
}

func TestProcessUnknownTaskType(t *testing.T) {
	formatter := &fakeFormatter{}
	refresher := &fakeRefresher{}
	w := newTestWorker(formatter, refresher, nil, RetryPolicy{})

	w.process(context.Background(), Task{Type: "mystery"})

	if len(formatter.calls) != 0 || len(refresher.calls) != 0 {
		t.Fatalf("unknown task should not reach collaborators")
	}
}

func TestProcessRequeuesFailedTask(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("boom")}
	w := newTestWorker(&fakeFormatter{}, refresher, nil,
		RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})

	w.process(context.Background(), Task{Type: TaskCacheRefresh, Year: 2026, Month: time.September})

	select {
	case task := <-w.queue:
		if task.Attempt != 1 {
			t.Fatalf("expected attempt 1, got %d", task.Attempt)
		}
		if task.Type != TaskCacheRefresh {
			t.Fatalf("expected cache refresh task, got %s", task.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("expected failed task to be requeued")
	}
}

func TestProcessAbandonsAfterMaxRetries(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("boom")}
	w := newTestWorker(&fakeFormatter{}, refresher, nil,
		RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})

	w.process(context.Background(), Task{Type: TaskCacheRefresh, Attempt: 2})

	select {
	case <-w.queue:
		t.Fatal("task past max retries should be abandoned")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAbandonedFormatCopyPublishesFailure(t *testing.T) {
	formatter := &fakeFormatter{err: errors.New("format exploded")}
	bus := &fakeBus{}
	logger := zerolog.Nop()
	w := New(formatter, &fakeRefresher{}, nil, bus,
		RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, &logger)

	w.process(context.Background(), Task{Type: TaskFormatCopy, GID: 9, FromRow: 4, ToRow: 5})

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.events))
	}
	if bus.events[0].eventType != events.EventFormattingFailed {
		t.Fatalf("unexpected event type %s", bus.events[0].eventType)
	}

	var payload events.FailurePayload
	if err := json.Unmarshal(bus.events[0].payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Detail != "format exploded" {
		t.Fatalf("unexpected detail %q", payload.Detail)
	}
	if len(payload.Rows) != 1 || payload.Rows[0] != 5 {
		t.Fatalf("unexpected rows %v", payload.Rows)
	}
}

func TestAbandonedCacheRefreshStaysQuiet(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("boom")}
	bus := &fakeBus{}
	logger := zerolog.Nop()
	w := New(&fakeFormatter{}, refresher, nil, bus,
		RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, &logger)

	w.process(context.Background(), Task{Type: TaskCacheRefresh, Year: 2026, Month: time.September})

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.events) != 0 {
		t.Fatalf("cache refresh abandonment should publish nothing, got %d events", len(bus.events))
	}
}

func TestEnqueueFormatCopy(t *testing.T) {
	w := newTestWorker(&fakeFormatter{}, &fakeRefresher{}, nil, RetryPolicy{})

	w.EnqueueFormatCopy(7, 9, 4, 5)

	select {
	case task := <-w.queue:
		if task.Type != TaskFormatCopy || task.OpID != 7 || task.GID != 9 || task.FromRow != 4 || task.ToRow != 5 {
			t.Fatalf("unexpected task: %+v", task)
		}
	default:
		t.Fatal("expected task in queue")
	}
}

func TestEnqueueCacheRefreshDelays(t *testing.T) {
	w := newTestWorker(&fakeFormatter{}, &fakeRefresher{}, nil, RetryPolicy{})

	w.EnqueueCacheRefresh(2026, time.September, 10*time.Millisecond)

	select {
	case <-w.queue:
		t.Fatal("delayed task should not be queued immediately")
	default:
	}

	select {
	case task := <-w.queue:
		if task.Year != 2026 || task.Month != time.September {
			t.Fatalf("unexpected task: %+v", task)
		}
	case <-time.After(time.Second):
		t.Fatal("expected delayed task to arrive")
	}
}

func TestEnqueueCacheRefreshZeroDelayIsImmediate(t *testing.T) {
	w := newTestWorker(&fakeFormatter{}, &fakeRefresher{}, nil, RetryPolicy{})

	w.EnqueueCacheRefresh(2026, time.October, 0)

	select {
	case task := <-w.queue:
		if task.Month != time.October {
			t.Fatalf("unexpected task: %+v", task)
		}
	default:
		t.Fatal("expected task in queue")
	}
}

func TestStartProcessesQueue(t *testing.T) {
	formatter := &fakeFormatter{}
	w := newTestWorker(formatter, &fakeRefresher{}, nil, RetryPolicy{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	w.EnqueueFormatCopy(0, 9, 4, 5)

	deadline := time.Now().Add(time.Second)
	for formatter.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker did not process queued task")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func TestPushDropsWhenQueueFull(t *testing.T) {
	w := newTestWorker(&fakeFormatter{}, &fakeRefresher{}, nil, RetryPolicy{})

	for i := 0; i < queueSize+1; i++ {
		w.push(Task{Type: TaskCacheRefresh})
	}

	if len(w.queue) != queueSize {
		t.Fatalf("expected queue capped at %d, got %d", queueSize, len(w.queue))
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	if d := policy.NextDelay(1); d != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d)
	}
	if d := policy.NextDelay(2); d != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d)
	}
	if d := policy.NextDelay(5); d != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d)
	}
	if d := policy.NextDelay(0); d != time.Second {
		t.Fatalf("attempt0 expected 1s, got %s", d)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	var policy RetryPolicy

	if d := policy.NextDelay(3); d != 4*time.Second {
		t.Fatalf("zero policy attempt3 expected 4s, got %s", d)
	}
}
