package sheet

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"roomsheet/internal/google"

	"github.com/rs/zerolog"
)

type csvSource interface {
	FetchRows(ctx context.Context, gid int64) ([][]string, error)
}

type metadataSource interface {
	TabList(ctx context.Context) ([]google.TabProps, error)
}

// Locator resolves a calendar month to the tab backing it. Resolution is
// cheap-first: the public CSV export of a few well-known gids is probed
// before the authenticated metadata endpoint is asked, and probed once
// more afterwards as the last public fallback.
type Locator struct {
	csv       csvSource
	meta      metadataSource
	probeGIDs []int64
	loc       *time.Location
	logger    zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex
	cache map[monthKey]resolvedTab
}

type monthKey struct {
	year  int
	month time.Month
}

type resolvedTab struct {
	tab        Tab
	resolvedAt time.Time
}

func NewLocator(csv csvSource, meta metadataSource, probeGIDs []int64, loc *time.Location, logger *zerolog.Logger) *Locator {
	lg := zerolog.Nop()
	if logger != nil {
		lg = logger.With().Str("component", "sheet_locator").Logger()
	}
	return &Locator{
		csv:       csv,
		meta:      meta,
		probeGIDs: probeGIDs,
		loc:       loc,
		logger:    lg,
		now:       time.Now,
		cache:     make(map[monthKey]resolvedTab),
	}
}

// ResolveTab finds the tab for a month. A missing tab is a *NotFoundError;
// everything actionable for the caller (month, year, suggested titles)
// rides on it.
func (l *Locator) ResolveTab(ctx context.Context, year int, month time.Month) (Tab, error) {
	key := monthKey{year: year, month: month}
	now := l.now().In(l.loc)

	if tab, ok := l.cached(key, now); ok {
		return tab, nil
	}

	isCurrentMonth := year == now.Year() && month == now.Month()

	csvFetched := false
	if isCurrentMonth {
		tab, found, fetched := l.probeCSV(ctx, year, month)
		csvFetched = fetched
		if found {
			l.store(key, tab, now)
			return tab, nil
		}
	}

	tab, metaErr := l.resolveFromMetadata(ctx, year, month)
	if metaErr == nil {
		l.store(key, tab, now)
		return tab, nil
	}

	// Last public fallback. For the current month this retries the probe in
	// case the export lagged the first attempt.
	tab, found, fetched := l.probeCSV(ctx, year, month)
	csvFetched = csvFetched || fetched
	if found {
		l.store(key, tab, now)
		return tab, nil
	}

	if !errors.Is(metaErr, ErrSheetNotFound) && !csvFetched {
		// Metadata failed for transport reasons and no public read ever
		// succeeded either, so "create the tab" would be the wrong
		// instruction.
		return Tab{}, metaErr
	}
	if !errors.Is(metaErr, ErrSheetNotFound) {
		l.logger.Warn().Err(metaErr).Int("year", year).Str("month", month.String()).
			Msg("metadata lookup failed, reporting tab as missing")
	}

	return Tab{}, newNotFound(year, month)
}

// CachedGID returns the gid cached for a month without re-resolving, or
// -1 when no tab is known. The sheet-URL endpoint uses it to deep-link
// the month's tab.
func (l *Locator) CachedGID(year int, month time.Month) int64 {
	now := l.now().In(l.loc)
	if tab, ok := l.cached(monthKey{year: year, month: month}, now); ok {
		return tab.GID
	}
	return -1
}

func (l *Locator) cached(key monthKey, now time.Time) (Tab, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.cache[key]
	if !ok {
		return Tab{}, false
	}

	// Past months never move; anything else must have been resolved within
	// the present calendar month or it is re-resolved (month rollover).
	keyStart := time.Date(key.year, key.month, 1, 0, 0, 0, 0, l.loc)
	nowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, l.loc)
	if keyStart.Before(nowStart) {
		return entry.tab, true
	}

	resolved := entry.resolvedAt.In(l.loc)
	if resolved.Year() == now.Year() && resolved.Month() == now.Month() {
		return entry.tab, true
	}

	delete(l.cache, key)
	return Tab{}, false
}

func (l *Locator) store(key monthKey, tab Tab, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[key] = resolvedTab{tab: tab, resolvedAt: now}
}

// probeCSV tests the configured gids: a tab belongs to the month when its
// first grid cell mentions the month name and does not carry a different
// four-digit year. fetched reports whether at least one export could be
// read at all, which separates "the tab is not there" from "nothing is
// reachable".
func (l *Locator) probeCSV(ctx context.Context, year int, month time.Month) (tab Tab, found, fetched bool) {
	for _, gid := range l.probeGIDs {
		rows, err := l.csv.FetchRows(ctx, gid)
		if err != nil {
			l.logger.Debug().Err(err).Int64("gid", gid).Msg("csv probe failed")
			continue
		}
		fetched = true
		if len(rows) == 0 || len(rows[0]) == 0 {
			continue
		}

		first := strings.TrimSpace(rows[0][0])
		if !containsMonth(first, month) {
			continue
		}
		if y, ok := titleYear(first); ok && y != year {
			continue
		}
		return Tab{GID: gid, Title: first}, true, true
	}
	return Tab{}, false, fetched
}

// resolveFromMetadata full-text-matches tab titles: exact "MONTH YEAR"
// first, then month plus year, then the month name alone.
func (l *Locator) resolveFromMetadata(ctx context.Context, year int, month time.Month) (Tab, error) {
	tabs, err := l.meta.TabList(ctx)
	if err != nil {
		return Tab{}, err
	}

	upper, _ := monthTitles(year, month)
	yearText := strconv.Itoa(year)

	var withYear, monthOnly *Tab
	for i := range tabs {
		title := tabs[i].Title
		if !containsMonth(title, month) {
			continue
		}
		if y, ok := titleYear(title); ok && y != year {
			continue
		}

		candidate := Tab{GID: tabs[i].GID, Title: title}
		if strings.EqualFold(strings.TrimSpace(title), upper) {
			return candidate, nil
		}
		if strings.Contains(title, yearText) {
			if withYear == nil {
				withYear = &candidate
			}
			continue
		}
		if monthOnly == nil {
			monthOnly = &candidate
		}
	}

	if withYear != nil {
		return *withYear, nil
	}
	if monthOnly != nil {
		return *monthOnly, nil
	}
	return Tab{}, newNotFound(year, month)
}
