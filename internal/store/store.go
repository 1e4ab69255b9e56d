package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"github.com/gyeh/aihstats/internal/metrics"
	"github.com/gyeh/aihstats/internal/model"
	"github.com/gyeh/aihstats/internal/refdata"
)

const defaultTTL = 600 * time.Second

// Config configures a Store.
type Config struct {
	Logger    zerolog.Logger
	Source    Source
	Reference *refdata.Table // optional
	// CacheKey identifies the dataset in the cache, normally the query text.
	CacheKey string
	TTL      time.Duration
}

func (c *Config) Validate() error {
	if c.Source == nil {
		return errors.New("source is required")
	}
	if c.CacheKey == "" {
		return errors.New("cache key is required")
	}
	if c.TTL == 0 {
		c.TTL = defaultTTL
	}
	return nil
}

// Store memoizes the joined dataset for a fixed TTL. The expiry is not
// extended by reads. Callers that miss at the same time each reload; the
// last one to finish wins the cache slot.
type Store struct {
	cfg Config
	log zerolog.Logger

	cache   *ttlcache.Cache[string, *model.Dataset]
	cacheMu sync.RWMutex
}

// New builds a Store from cfg.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *model.Dataset](cfg.TTL),
		ttlcache.WithDisableTouchOnHit[string, *model.Dataset](),
	)
	return &Store{cfg: cfg, log: cfg.Logger, cache: cache}, nil
}

// Dataset returns the cached dataset, loading and joining it from the
// source when the cache is empty or expired.
func (s *Store) Dataset(ctx context.Context) (*model.Dataset, error) {
	s.cacheMu.RLock()
	item := s.cache.Get(s.cfg.CacheKey)
	s.cacheMu.RUnlock()
	if item != nil {
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return item.Value(), nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()

	start := time.Now()
	ds, err := s.cfg.Source.Load(ctx)
	metrics.DatasetLoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DatasetLoadsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("dataset load failed")
		return nil, err
	}
	metrics.DatasetLoadsTotal.WithLabelValues("success").Inc()

	joined := Join(ds, s.cfg.Reference)
	metrics.DatasetRecords.Set(float64(len(joined.Records)))

	s.cacheMu.Lock()
	s.cache.Set(s.cfg.CacheKey, joined, ttlcache.DefaultTTL)
	s.cacheMu.Unlock()

	s.log.Debug().
		Int("records", len(joined.Records)).
		Dur("ttl", s.cfg.TTL).
		Msg("dataset cached")
	return joined, nil
}

// Invalidate drops the cached dataset so the next call reloads.
func (s *Store) Invalidate() {
	s.cacheMu.Lock()
	s.cache.Delete(s.cfg.CacheKey)
	s.cacheMu.Unlock()
}
