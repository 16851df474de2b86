package journal

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"roomsheet/internal/domain"
	"roomsheet/internal/logging"
)

const pruneInterval = 24 * time.Hour

// Pruner trims old journal entries on a daily schedule.
type Pruner struct {
	journal       domain.Journal
	retentionDays int
	logger        zerolog.Logger
}

func NewPruner(journal domain.Journal, retentionDays int, logger *zerolog.Logger) *Pruner {
	return &Pruner{
		journal:       journal,
		retentionDays: retentionDays,
		logger:        logging.Component(logger, "journal_pruner"),
	}
}

// Start blocks until ctx is cancelled. A retention of zero or less
// disables pruning entirely.
func (p *Pruner) Start(ctx context.Context) {
	if p.retentionDays <= 0 {
		p.logger.Info().Msg("journal pruning disabled")
		return
	}

	p.logger.Info().Int("retention_days", p.retentionDays).Msg("journal pruner started")

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -p.retentionDays)
	if _, err := p.journal.PruneBefore(ctx, cutoff); err != nil {
		p.logger.Error().Err(err).Msg("journal prune failed")
	}
}
