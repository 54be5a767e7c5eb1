// Package resultcache holds encrypted-asset manifests between the encrypt
// and publish steps of the ingest flow, so callers don't carry large binary
// payloads across the two request boundaries.
//
// The cache is process-local: entries do not survive restarts and are not
// visible to other instances. The ingest flow is expected to complete within
// a single request lifecycle on one instance, so this is a documented scaling
// constraint rather than a correctness bug. Memory is bounded both ways:
// least-recently-used entries are evicted past capacity, and a janitor
// reclaims entries whose TTL elapsed even if the publish step never arrives.
package resultcache

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
)

// janitorInterval is how often expired entries are swept.
const janitorInterval = time.Minute

type entry struct {
	assetID   uuid.UUID
	manifest  *assetDomain.EncryptedAssetManifest
	expiresAt time.Time
	element   *list.Element
}

// Cache is a size-bounded, TTL-bounded store of encrypted-asset manifests
// keyed by asset id. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[uuid.UUID]*entry
	order      *list.List // front = most recently used
	maxEntries int
	ttl        time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a cache holding at most maxEntries manifests for at most ttl
// each, and starts the expiry janitor. Call Close to stop the janitor.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		entries:    make(map[uuid.UUID]*entry),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}

	go c.janitor()
	return c
}

// Put stores a manifest for the asset, replacing any previous entry. The
// least-recently-used entry is evicted when the cache is at capacity.
func (c *Cache) Put(assetID uuid.UUID, manifest *assetDomain.EncryptedAssetManifest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[assetID]; ok {
		c.order.Remove(existing.element)
		delete(c.entries, assetID)
	}

	for len(c.entries) >= c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry))
	}

	e := &entry{
		assetID:   assetID,
		manifest:  manifest,
		expiresAt: time.Now().Add(c.ttl),
	}
	e.element = c.order.PushFront(e)
	c.entries[assetID] = e
}

// Take removes and returns the manifest for the asset. The publish step uses
// Take so each manifest is consumed exactly once and memory is reclaimed.
func (c *Cache) Take(assetID uuid.UUID) (*assetDomain.EncryptedAssetManifest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[assetID]
	if !ok {
		return nil, false
	}

	c.removeLocked(e)

	if time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.manifest, true
}

// Peek returns the manifest without consuming it, refreshing its recency.
func (c *Cache) Peek(assetID uuid.UUID) (*assetDomain.EncryptedAssetManifest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[assetID]
	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.removeLocked(e)
		return nil, false
	}

	c.order.MoveToFront(e.element)
	return e.manifest, true
}

// Len returns the number of cached manifests, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the expiry janitor and drops all entries.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]*entry)
	c.order.Init()
}

func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.element)
	delete(c.entries, e.assetID)
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for _, e := range c.entries {
				if now.After(e.expiresAt) {
					c.removeLocked(e)
				}
			}
			c.mu.Unlock()
		}
	}
}
