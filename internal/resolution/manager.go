// Package resolution owns the mapping from (source URL, quality) to a
// currently-valid resolved variant. It memoizes extraction results within
// their signed-URL validity window and collapses concurrent resolutions of
// the same key into a single extraction call.
package resolution

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"ytbridge/internal/extractor"
	"ytbridge/internal/resolver"
)

// how often should be cache cleanup called
const cacheCleanupPeriod = 15 * time.Second

// how many times a transient extraction failure is retried before surfacing
const extractAttempts = 2

const retryBackoff = 500 * time.Millisecond

type ManagerCtx struct {
	logger    zerolog.Logger
	config    Config
	extractor extractor.Extractor

	cache   map[string]cacheEntry
	cacheMu sync.RWMutex

	flight singleflight.Group

	mu       sync.Mutex
	shutdown chan struct{}
}

func New(ex extractor.Extractor, config Config) *ManagerCtx {
	return &ManagerCtx{
		logger:    log.With().Str("module", "resolution").Logger(),
		config:    config,
		extractor: ex,
		cache:     map[string]cacheEntry{},
		shutdown:  make(chan struct{}),
	}
}

func (m *ManagerCtx) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdown = make(chan struct{})

	// periodic cleanup
	go func() {
		ticker := time.NewTicker(cacheCleanupPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-m.shutdown:
				return
			case <-ticker.C:
				m.clearCache()
			}
		}
	}()
}

func (m *ManagerCtx) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	close(m.shutdown)
}

// GetOrResolve returns the current selection for a key, from cache when its
// validity window still holds, otherwise through exactly one shared
// extraction call. An abandoned request does not cancel the shared call; the
// result still lands in the cache.
func (m *ManagerCtx) GetOrResolve(ctx context.Context, sourceURL string, quality string) (*Selection, error) {
	key := sourceURL + "|" + quality

	if selection, ok := m.getFromCache(key); ok {
		return selection, nil
	}

	ch := m.flight.DoChan(key, func() (interface{}, error) {
		return m.resolve(sourceURL, quality, key)
	})

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	select {
	case res := <-ch:
		if res.Err != nil {
			// the shared flight may hit its own bound
			if errors.Is(res.Err, context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, res.Err
		}
		return res.Val.(*Selection), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// resolve is the single-flight body: one extraction, one policy run, one
// cache store. It runs on its own context so a disconnected client cannot
// kill a call other requests are waiting on.
func (m *ManagerCtx) resolve(sourceURL string, quality string, key string) (*Selection, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.Timeout)
	defer cancel()

	var info *extractor.VideoInfo
	var err error

	for attempt := 0; attempt < extractAttempts; attempt++ {
		if attempt > 0 {
			m.logger.Warn().Err(err).Str("url", sourceURL).Msg("retrying extraction")
			time.Sleep(retryBackoff)
		}

		info, err = m.extractor.Extract(ctx, sourceURL)
		if err == nil {
			break
		}

		var exErr *extractor.Error
		if !errors.As(err, &exErr) || exErr.Kind != extractor.KindUnreachable {
			break
		}
	}

	if err != nil {
		return nil, err
	}

	variant, err := resolver.Resolve(info.Variants, quality)
	if err != nil {
		return nil, err
	}

	selection := &Selection{
		SourceURL:  sourceURL,
		Quality:    quality,
		Video:      info,
		Variant:    variant,
		ResolvedAt: time.Now(),
	}

	m.saveToCache(key, selection)

	m.logger.Info().
		Str("url", sourceURL).
		Str("quality", quality).
		Str("variant", variant.QualityLabel()).
		Time("expires", variant.ExpiresAt).
		Msg("resolved selection")

	return selection, nil
}
