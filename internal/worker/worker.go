package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"roomsheet/internal/domain"
	"roomsheet/internal/events"
	"roomsheet/internal/logging"
	"roomsheet/internal/models"
)

const (
	TaskFormatCopy   = "format_copy"
	TaskCacheRefresh = "cache_refresh"
)

const queueSize = 128

// Task is one unit of deferred sheet work.
type Task struct {
	Type    string
	OpID    int64
	GID     int64
	FromRow int
	ToRow   int
	Year    int
	Month   time.Month
	Attempt int
}

// Formatter copies row formatting inside a tab. The Google client
// satisfies this directly.
type Formatter interface {
	CopyRowFormat(ctx context.Context, gid int64, fromRow, toRow int) error
}

// Refresher re-reads a month from the spreadsheet into the cache.
type Refresher interface {
	RefreshMonth(ctx context.Context, year int, month time.Month) error
}

// Worker drains an in-process task queue: formatting copies after row
// inserts and cache refreshes after the settle delay. Failed tasks are
// retried with exponential backoff and abandoned after MaxRetries;
// nothing here is load-bearing for correctness, so abandonment is a log
// line and an event, not an error for a caller.
type Worker struct {
	formatter Formatter
	refresher Refresher
	journal   domain.Journal
	bus       domain.EventPublisher
	retry     RetryPolicy
	queue     chan Task
	logger    zerolog.Logger
}

func New(formatter Formatter, refresher Refresher, journal domain.Journal, bus domain.EventPublisher, retry RetryPolicy, logger *zerolog.Logger) *Worker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &Worker{
		formatter: formatter,
		refresher: refresher,
		journal:   journal,
		bus:       bus,
		retry:     retry,
		queue:     make(chan Task, queueSize),
		logger:    logging.Component(logger, "worker"),
	}
}

// EnqueueFormatCopy schedules copying the formatting of fromRow onto
// toRow in the given tab.
func (w *Worker) EnqueueFormatCopy(opID, gid int64, fromRow, toRow int) {
	w.push(Task{Type: TaskFormatCopy, OpID: opID, GID: gid, FromRow: fromRow, ToRow: toRow})
}

// EnqueueCacheRefresh schedules re-reading a month once the spreadsheet
// has had time to reflect a write.
func (w *Worker) EnqueueCacheRefresh(year int, month time.Month, delay time.Duration) {
	task := Task{Type: TaskCacheRefresh, Year: year, Month: month}
	if delay <= 0 {
		w.push(task)
		return
	}
	time.AfterFunc(delay, func() { w.push(task) })
}

func (w *Worker) push(task Task) {
	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Str("type", task.Type).Msg("task queue full, task dropped")
	}
}

// Start runs the processing loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info().Msg("task worker started")
	defer w.logger.Info().Msg("task worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.process(ctx, task)
		}
	}
}

func (w *Worker) process(ctx context.Context, task Task) {
	var err error
	switch task.Type {
	case TaskFormatCopy:
		err = w.formatter.CopyRowFormat(ctx, task.GID, task.FromRow, task.ToRow)
		if err == nil {
			w.markFormatApplied(ctx, task)
		}
	case TaskCacheRefresh:
		err = w.refresher.RefreshMonth(ctx, task.Year, task.Month)
	default:
		w.logger.Error().Str("type", task.Type).Msg("unknown task type")
		return
	}

	if err == nil || ctx.Err() != nil {
		return
	}
	w.retryOrAbandon(task, err)
}

// reportAbandoned raises a formatting abandonment on the bus. Cache
// refreshes fail quiet: the next poll re-reads the month anyway.
func (w *Worker) reportAbandoned(task Task, cause error) {
	if w.bus == nil || task.Type != TaskFormatCopy {
		return
	}
	err := w.bus.PublishJSON(events.EventFormattingFailed, events.FailurePayload{
		Operation: task.Type,
		Detail:    cause.Error(),
		Rows:      []int{task.ToRow},
	})
	if err != nil {
		w.logger.Warn().Err(err).Msg("publish abandonment event failed")
	}
}

func (w *Worker) markFormatApplied(ctx context.Context, task Task) {
	if w.journal == nil || task.OpID == 0 {
		return
	}
	detail := fmt.Sprintf("copied formatting of row %d onto row %d", task.FromRow, task.ToRow)
	if err := w.journal.UpdateStage(ctx, task.OpID, models.StageFormatApplied, detail); err != nil {
		w.logger.Warn().Err(err).Int64("op_id", task.OpID).Msg("journal stage update failed")
	}
}

func (w *Worker) retryOrAbandon(task Task, cause error) {
	attempt := task.Attempt + 1
	if attempt >= w.retry.MaxRetries {
		w.logger.Error().
			Err(cause).
			Str("type", task.Type).
			Int("attempts", attempt).
			Msg("task abandoned")
		w.reportAbandoned(task, cause)
		return
	}

	task.Attempt = attempt
	delay := w.retry.NextDelay(attempt)
	w.logger.Warn().
		Err(cause).
		Str("type", task.Type).
		Int("attempt", attempt).
		Dur("retry_in", delay).
		Msg("task failed, retrying")
	time.AfterFunc(delay, func() { w.push(task) })
}
