package stilts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CachedLoader wraps any TemplateLoader with in-memory caching of Load
// results, with a TTL and a size limit.
type CachedLoader struct {
	loader TemplateLoader
	config CacheConfig
	logger *zap.Logger

	mu     sync.RWMutex
	cache  map[string]*cacheEntry
	closed bool
}

// CacheConfig configures the caching behavior.
type CacheConfig struct {
	// TTL is how long cached entries remain valid.
	// Default: 5 minutes.
	TTL time.Duration

	// MaxEntries is the maximum number of cached references.
	// When exceeded, the least recently accessed entry is evicted.
	// Default: 1000.
	MaxEntries int

	// NegativeCacheTTL is how long to cache "not found" results.
	// Set to 0 to disable negative caching.
	// Default: 30 seconds.
	NegativeCacheTTL time.Duration
}

// DefaultCacheConfig returns the default caching configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:              CacheDefaultTTL,
		MaxEntries:       CacheDefaultMaxEntries,
		NegativeCacheTTL: CacheDefaultNegativeCacheTTL,
	}
}

// cacheEntry represents a cached load result.
type cacheEntry struct {
	template   *LoadedTemplate
	notFound   bool
	cachedAt   time.Time
	accessedAt time.Time
	key        string
}

// NewCachedLoader wraps a loader with caching. A nil logger disables logging.
func NewCachedLoader(loader TemplateLoader, config CacheConfig, logger *zap.Logger) *CachedLoader {
	if config.TTL == 0 {
		config.TTL = CacheDefaultTTL
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = CacheDefaultMaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CachedLoader{
		loader: loader,
		config: config,
		logger: logger,
		cache:  make(map[string]*cacheEntry),
	}
}

// Load retrieves a template, using the cache when available. Only
// not-found failures are cached; other errors always reach the wrapped
// loader again.
func (l *CachedLoader) Load(ctx context.Context, ref string) (*LoadedTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, NewLoaderClosedError()
	}
	entry, ok := l.cache[ref]
	if ok && l.isValid(entry) {
		entry.accessedAt = time.Now()
		l.mu.Unlock()
		l.logger.Debug(LogMsgLoaderHit, zap.String(LogFieldReference, ref))

		if entry.notFound {
			return nil, NewTemplateNotFoundError(ref)
		}
		copied := *entry.template
		return &copied, nil
	}
	l.mu.Unlock()

	l.logger.Debug(LogMsgLoaderMiss, zap.String(LogFieldReference, ref))
	t, err := l.loader.Load(ctx, ref)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, NewLoaderClosedError()
	}

	if err != nil {
		if IsNotFound(err) && l.config.NegativeCacheTTL > 0 {
			l.addEntry(ref, nil, true)
		}
		return nil, err
	}

	l.addEntry(ref, t, false)
	copied := *t
	return &copied, nil
}

// Invalidate drops the cached result for a reference.
func (l *CachedLoader) Invalidate(ref string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.cache, ref)
}

// Clear drops every cached result.
func (l *CachedLoader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache = make(map[string]*cacheEntry)
}

// Unwrap returns the wrapped loader.
func (l *CachedLoader) Unwrap() TemplateLoader {
	return l.loader
}

// Close clears the cache and closes the wrapped loader if it can be closed.
func (l *CachedLoader) Close() error {
	l.mu.Lock()
	l.closed = true
	l.cache = nil
	l.mu.Unlock()

	if closer, ok := l.loader.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Stats returns cache statistics.
func (l *CachedLoader) Stats() CacheStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var validCount, negativeCount int
	for _, entry := range l.cache {
		if l.isValid(entry) {
			if entry.notFound {
				negativeCount++
			} else {
				validCount++
			}
		}
	}

	return CacheStats{
		Entries:         len(l.cache),
		ValidEntries:    validCount,
		NegativeEntries: negativeCount,
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries         int
	ValidEntries    int
	NegativeEntries int
}

// isValid checks if a cache entry is still valid.
func (l *CachedLoader) isValid(entry *cacheEntry) bool {
	ttl := l.config.TTL
	if entry.notFound {
		ttl = l.config.NegativeCacheTTL
	}
	return time.Since(entry.cachedAt) < ttl
}

// addEntry adds an entry to the cache, evicting if necessary.
// Caller must hold write lock.
func (l *CachedLoader) addEntry(ref string, t *LoadedTemplate, notFound bool) {
	if _, exists := l.cache[ref]; !exists && len(l.cache) >= l.config.MaxEntries {
		l.evictOldest()
	}

	now := time.Now()
	var stored *LoadedTemplate
	if t != nil {
		copied := *t
		stored = &copied
	}
	l.cache[ref] = &cacheEntry{
		template:   stored,
		notFound:   notFound,
		cachedAt:   now,
		accessedAt: now,
		key:        ref,
	}
}

// evictOldest removes the least recently accessed entry.
// Caller must hold write lock.
func (l *CachedLoader) evictOldest() {
	var oldest *cacheEntry
	for _, entry := range l.cache {
		if oldest == nil || entry.accessedAt.Before(oldest.accessedAt) {
			oldest = entry
		}
	}

	if oldest != nil {
		delete(l.cache, oldest.key)
		l.logger.Debug(LogMsgLoaderEvicted, zap.String(LogFieldReference, oldest.key))
	}
}

// Ensure CachedLoader implements TemplateLoader
var _ TemplateLoader = (*CachedLoader)(nil)
