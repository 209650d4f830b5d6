package gameground

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/singleflight"
)

// CachePolicy is a two-window freshness policy: an entry is fresh for
// FreshFor, then may still be served for StaleGrace while a refresh runs.
type CachePolicy struct {
	FreshFor   time.Duration `json:"fresh_for"`
	StaleGrace time.Duration `json:"stale_grace"`
}

var (
	ListPolicy        = CachePolicy{FreshFor: 60 * time.Second, StaleGrace: 60 * time.Second}
	ListFailurePolicy = CachePolicy{FreshFor: 30 * time.Second, StaleGrace: 30 * time.Second}
	ArticlePolicy     = CachePolicy{FreshFor: 5 * time.Minute, StaleGrace: 10 * time.Minute}
	FeedPolicy        = CachePolicy{FreshFor: 15 * time.Minute, StaleGrace: time.Hour}
	StaticPolicy      = CachePolicy{FreshFor: time.Hour, StaleGrace: 24 * time.Hour}
)

// Header renders the policy as a Cache-Control value for shared caches.
func (p CachePolicy) Header() string {
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d",
		int(p.FreshFor/time.Second), int(p.StaleGrace/time.Second))
}

// TTL is the total lifetime of an entry, fresh plus grace.
func (p CachePolicy) TTL() time.Duration {
	return p.FreshFor + p.StaleGrace
}

// CacheEntry is what backends store: a JSON value stamped with its policy.
type CacheEntry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
	Policy   CachePolicy     `json:"policy"`
}

// Fresh reports whether the entry can be served without revalidation.
func (e CacheEntry) Fresh(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.Policy.FreshFor
}

// Servable reports whether the entry is within its fresh or grace window.
func (e CacheEntry) Servable(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.Policy.TTL()
}

// CacheBackend stores cache entries. Load reports ok=false on a miss.
type CacheBackend interface {
	Load(ctx context.Context, key string) (entry CacheEntry, ok bool, err error)
	Save(ctx context.Context, key string, entry CacheEntry) error
	Close() error
}

// CacheStatus tells how a value was obtained.
type CacheStatus string

const (
	CacheHit   CacheStatus = "HIT"
	CacheStale CacheStatus = "STALE"
	CacheMiss  CacheStatus = "MISS"
)

// FetchFunc produces a fresh value and the policy it should be cached under.
type FetchFunc func(ctx context.Context) (interface{}, CachePolicy, error)

// PostCache is a stale-while-revalidate cache in front of the content API.
// Concurrent misses and refreshes for the same key share one upstream call.
type PostCache struct {
	backend        CacheBackend
	group          singleflight.Group
	logger         echo.Logger
	refreshTimeout time.Duration
	now            func() time.Time

	wg sync.WaitGroup
}

// NewPostCache creates a PostCache over backend. Every upstream fetch is
// bounded by refreshTimeout.
func NewPostCache(backend CacheBackend, refreshTimeout time.Duration, logger echo.Logger) *PostCache {
	if refreshTimeout <= 0 {
		refreshTimeout = 10 * time.Second
	}
	return &PostCache{
		backend:        backend,
		logger:         logger,
		refreshTimeout: refreshTimeout,
		now:            time.Now,
	}
}

// Get decodes the cached value for key into dst, calling fetch when the key
// is missing or expired. A stale entry is returned immediately and refreshed
// in the background. Fetch errors are returned and never cached.
func (c *PostCache) Get(ctx context.Context, key string, dst interface{}, fetch FetchFunc) (CacheStatus, error) {
	entry, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.logger.Warnf("cache load %s: %v", key, err)
		ok = false
	}
	now := c.now()
	if ok && entry.Servable(now) {
		if err := json.Unmarshal(entry.Value, dst); err == nil {
			if entry.Fresh(now) {
				return CacheHit, nil
			}
			c.revalidate(key, fetch)
			return CacheStale, nil
		}
		c.logger.Warnf("cache decode %s: discarding entry", key)
	}

	// The fetch is shared by every caller waiting on key and outlives any
	// one of them.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return c.refresh(fctx, key, fetch)
	})
	select {
	case <-ctx.Done():
		return CacheMiss, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return CacheMiss, res.Err
		}
		if err := json.Unmarshal(res.Val.(json.RawMessage), dst); err != nil {
			return CacheMiss, fmt.Errorf("decode %s: %w", key, err)
		}
		return CacheMiss, nil
	}
}

func (c *PostCache) refresh(ctx context.Context, key string, fetch FetchFunc) (json.RawMessage, error) {
	value, policy, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	entry := CacheEntry{Value: raw, StoredAt: c.now(), Policy: policy}
	if err := c.backend.Save(ctx, key, entry); err != nil {
		c.logger.Warnf("cache save %s: %v", key, err)
	}
	return raw, nil
}

// revalidate refreshes key on a detached context. The entry keeps being
// served until the refresh lands; a failed refresh leaves it in place.
func (c *PostCache) revalidate(key string, fetch FetchFunc) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
		defer cancel()
		_, err, _ := c.group.Do(key, func() (interface{}, error) {
			if entry, ok, err := c.backend.Load(ctx, key); err == nil && ok && entry.Fresh(c.now()) {
				return entry.Value, nil
			}
			return c.refresh(ctx, key, fetch)
		})
		if err != nil {
			c.logger.Warnf("cache revalidate %s: %v", key, err)
		}
	}()
}

// Wait blocks until in-flight background refreshes finish.
func (c *PostCache) Wait() {
	c.wg.Wait()
}

// Close waits for background refreshes and closes the backend.
func (c *PostCache) Close() error {
	c.Wait()
	return c.backend.Close()
}

// MemoryBackend keeps entries in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]CacheEntry),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Load(_ context.Context, key string) (CacheEntry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	return e, ok, nil
}

// Save stores entry and drops entries whose grace window has passed.
func (m *MemoryBackend) Save(_ context.Context, key string, entry CacheEntry) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if !e.Servable(now) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func listKey(n int) string {
	return fmt.Sprintf("list:%d", n)
}

func postKey(id string) string {
	return "post:" + id
}
