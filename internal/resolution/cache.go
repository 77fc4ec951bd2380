package resolution

import "time"

type cacheEntry struct {
	selection *Selection
	expires   time.Time
}

func (m *ManagerCtx) getFromCache(key string) (*Selection, bool) {
	m.cacheMu.RLock()
	entry, ok := m.cache[key]
	m.cacheMu.RUnlock()

	// on cache miss
	if !ok {
		m.logger.Debug().Str("key", key).Msg("cache miss")
		return nil, false
	}

	// if cache has expired
	if time.Now().After(entry.expires) {
		m.removeFromCache(key)
		return nil, false
	}

	// cache hit
	m.logger.Debug().Str("key", key).Msg("cache hit")
	return entry.selection, true
}

func (m *ManagerCtx) saveToCache(key string, selection *Selection) {
	validity := m.config.TTL

	// never outlive the signed URL, keep a safety margin before its expiry
	if !selection.Variant.ExpiresAt.IsZero() {
		untilExpiry := selection.Variant.ExpiresAt.Sub(selection.ResolvedAt) - m.config.Margin
		if untilExpiry < validity {
			validity = untilExpiry
		}
	}

	// a selection that is already at the edge of its window is served once
	// but never cached
	if validity <= 0 {
		m.logger.Warn().Str("key", key).Msg("selection expires too soon, not caching")
		return
	}

	m.cacheMu.Lock()
	m.cache[key] = cacheEntry{
		selection: selection,
		expires:   selection.ResolvedAt.Add(validity),
	}
	m.cacheMu.Unlock()
}

func (m *ManagerCtx) removeFromCache(key string) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	delete(m.cache, key)
}

func (m *ManagerCtx) clearCache() {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	// remove expired entries
	for key, entry := range m.cache {
		if time.Now().After(entry.expires) {
			delete(m.cache, key)
			m.logger.Debug().Str("key", key).Msg("cache cleanup remove expired")
		}
	}
}

// Purge drops all cached selections, forcing fresh extraction on the next
// request for every key.
func (m *ManagerCtx) Purge() {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	m.cache = map[string]cacheEntry{}
}
