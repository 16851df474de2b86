package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"roomsheet/internal/domain"
	"roomsheet/internal/logging"
	"roomsheet/internal/metrics"
)

const recoveryInterval = time.Minute

// FailoverStore serves from the primary store until it errors, then
// sticks to the in-process fallback and retries the primary on reads
// once a minute. Entries written while the primary is down live only in
// the fallback; the cache is a staleness mitigation, not a source of
// truth, so losing them on restart is acceptable.
type FailoverStore struct {
	primary  domain.Store
	fallback domain.Store
	logger   zerolog.Logger

	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverStore(primary, fallback domain.Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logging.Component(logger, "cache_failover"),
	}
}

func (s *FailoverStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !s.isDown.Load() {
		data, ok, err := s.primary.Get(ctx, key)
		if err == nil {
			return data, ok, nil
		}
		s.markDown(err)
	} else if s.shouldRetry() {
		data, ok, err := s.primary.Get(ctx, key)
		if err == nil {
			s.isDown.Store(false)
			s.logger.Info().Msg("primary cache store recovered")
			metrics.IncCache("store", "recovered")
			return data, ok, nil
		}
		s.lastCheck.Store(time.Now().UnixNano())
	}
	return s.fallback.Get(ctx, key)
}

func (s *FailoverStore) Set(ctx context.Context, key string, data []byte) error {
	if !s.isDown.Load() {
		err := s.primary.Set(ctx, key, data)
		if err == nil {
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.Set(ctx, key, data)
}

func (s *FailoverStore) Delete(ctx context.Context, key string) error {
	if !s.isDown.Load() {
		err := s.primary.Delete(ctx, key)
		if err == nil {
			return s.fallback.Delete(ctx, key)
		}
		s.markDown(err)
	}
	return s.fallback.Delete(ctx, key)
}

func (s *FailoverStore) markDown(err error) {
	s.logger.Error().Err(err).Msg("primary cache store failed, using in-memory fallback")
	s.isDown.Store(true)
	s.lastCheck.Store(time.Now().UnixNano())
	metrics.IncCache("store", "failover")
}

func (s *FailoverStore) shouldRetry() bool {
	return time.Since(time.Unix(0, s.lastCheck.Load())) > recoveryInterval
}
