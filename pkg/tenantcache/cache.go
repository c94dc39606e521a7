package tenantcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/habitatlabs/societycore/pkg/kvstore"
	"github.com/habitatlabs/societycore/pkg/observability"
	"github.com/habitatlabs/societycore/pkg/tenant"
)

const (
	defaultMaxTenants     = 8
	defaultPersistTimeout = 5 * time.Second
)

// Data is the per-society payload served to the app's admin surfaces.
// Values restored from a persisted snapshot are generic JSON types.
type Data map[string]any

// DataService is the authoritative source of per-society data
type DataService interface {
	FetchTenantData(ctx context.Context, tenantID string) (Data, error)
}

// snapshot is the persisted envelope for one society's data
type snapshot struct {
	Data      Data      `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}

// entry holds one society's in-memory data. Isolation is structural: each
// society gets its own entry, keyed by society ID, so a lookup can never
// cross societies.
type entry struct {
	mu        sync.RWMutex
	data      Data
	fetchedAt time.Time
}

// Cache is the per-society isolated data cache. Loads go persisted-snapshot
// first (stale is fine, a full fetch always follows), then authoritative
// fetch; concurrent loads of the same society are deduplicated.
type Cache struct {
	svc     DataService
	store   kvstore.Store
	logger  *observability.Logger
	metrics *observability.Metrics

	persistTimeout time.Duration

	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
	group   singleflight.Group
	wg      sync.WaitGroup
}

// Option configures a Cache
type Option func(*Cache) error

// WithMaxTenants bounds how many societies stay resident in memory
// (default 8); evicted societies reload from their persisted snapshot.
func WithMaxTenants(n int) Option {
	return func(c *Cache) error {
		entries, err := lru.New[string, *entry](n)
		if err != nil {
			return fmt.Errorf("invalid max tenants: %w", err)
		}
		c.entries = entries
		return nil
	}
}

// WithPersistTimeout bounds each background snapshot write
func WithPersistTimeout(d time.Duration) Option {
	return func(c *Cache) error {
		if d > 0 {
			c.persistTimeout = d
		}
		return nil
	}
}

// WithMetrics records hits, misses and load results
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Cache) error {
		c.metrics = m
		return nil
	}
}

// New creates a cache over the given data service and persisted store
func New(svc DataService, store kvstore.Store, logger *observability.Logger, opts ...Option) (*Cache, error) {
	entries, err := lru.New[string, *entry](defaultMaxTenants)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		svc:            svc,
		store:          store,
		logger:         logger,
		persistTimeout: defaultPersistTimeout,
		entries:        entries,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func snapshotKey(tenantID string) string {
	return "tenantdata:" + tenantID
}

// entryFor returns the society's entry, creating it if needed
func (c *Cache) entryFor(tenantID string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.entries.Get(tenantID); ok {
		return ent
	}
	ent := &entry{}
	c.entries.Add(tenantID, ent)
	return ent
}

// Load refreshes a society's data. The persisted snapshot seeds memory first
// so the UI has something to show, then the authoritative fetch replaces it
// and is re-persisted in the background.
//
// A failed fetch keeps the stale entry in memory and returns a
// tenant.FetchError for UI indication; it is not fatal. Context cancellation
// is returned as-is so a superseded load aborts cleanly. Concurrent loads of
// the same society share one fetch.
func (c *Cache) Load(ctx context.Context, tenantID string) error {
	_, err, _ := c.group.Do(tenantID, func() (interface{}, error) {
		return nil, c.load(ctx, tenantID)
	})
	return err
}

func (c *Cache) load(ctx context.Context, tenantID string) error {
	ent := c.entryFor(tenantID)

	ent.mu.RLock()
	empty := ent.data == nil
	ent.mu.RUnlock()

	if empty {
		c.seedFromSnapshot(ctx, tenantID, ent)
	}

	fresh, err := c.svc.FetchTenantData(ctx, tenantID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if c.metrics != nil {
			c.metrics.CacheLoadsTotal.WithLabelValues("fetch_failed").Inc()
		}
		c.logger.WithError(err).WithField("tenant_id", tenantID).
			Warn("tenant data fetch failed, serving stale snapshot if present")
		return &tenant.FetchError{Op: "tenant data load", Err: err}
	}

	now := time.Now().UTC()
	ent.mu.Lock()
	ent.data = cloneData(fresh)
	ent.fetchedAt = now
	ent.mu.Unlock()

	c.persistAsync(tenantID, snapshot{Data: cloneData(fresh), FetchedAt: now})

	if c.metrics != nil {
		c.metrics.CacheLoadsTotal.WithLabelValues("ok").Inc()
	}
	return nil
}

// seedFromSnapshot restores the persisted snapshot into an empty entry
func (c *Cache) seedFromSnapshot(ctx context.Context, tenantID string, ent *entry) {
	raw, found, err := c.store.Get(ctx, snapshotKey(tenantID))
	if err != nil {
		c.logger.WithError(err).WithField("tenant_id", tenantID).Warn("snapshot read failed")
		return
	}
	if !found {
		return
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.WithError(err).WithField("tenant_id", tenantID).Warn("snapshot decode failed")
		return
	}

	ent.mu.Lock()
	if ent.data == nil {
		ent.data = snap.Data
		ent.fetchedAt = snap.FetchedAt
	}
	ent.mu.Unlock()
}

// Get returns the cached value for a key within a society. Data belonging
// to any other society is structurally unreachable from this call.
func (c *Cache) Get(tenantID, key string) (any, bool) {
	c.mu.Lock()
	ent, ok := c.entries.Get(tenantID)
	c.mu.Unlock()
	if !ok {
		if c.metrics != nil {
			c.metrics.CacheMissesTotal.Inc()
		}
		return nil, false
	}

	ent.mu.RLock()
	defer ent.mu.RUnlock()
	value, ok := ent.data[key]
	if c.metrics != nil {
		if ok {
			c.metrics.CacheHitsTotal.Inc()
		} else {
			c.metrics.CacheMissesTotal.Inc()
		}
	}
	return value, ok
}

// Set updates a society's in-memory data and persists the snapshot in the
// background. Persist failures are logged, never surfaced.
func (c *Cache) Set(tenantID, key string, value any) {
	ent := c.entryFor(tenantID)

	ent.mu.Lock()
	if ent.data == nil {
		ent.data = make(Data)
	}
	ent.data[key] = value
	snap := snapshot{Data: cloneData(ent.data), FetchedAt: ent.fetchedAt}
	ent.mu.Unlock()

	c.persistAsync(tenantID, snap)
}

// Clear removes a society's data from memory and from the persisted store.
// Used when a society grant is revoked.
func (c *Cache) Clear(ctx context.Context, tenantID string) error {
	c.mu.Lock()
	c.entries.Remove(tenantID)
	c.mu.Unlock()

	if err := c.store.Delete(ctx, snapshotKey(tenantID)); err != nil {
		return fmt.Errorf("failed to delete persisted snapshot for %s: %w", tenantID, err)
	}
	return nil
}

// FetchedAt reports when a society's data was last authoritatively fetched
func (c *Cache) FetchedAt(tenantID string) (time.Time, bool) {
	c.mu.Lock()
	ent, ok := c.entries.Get(tenantID)
	c.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	ent.mu.RLock()
	defer ent.mu.RUnlock()
	if ent.fetchedAt.IsZero() {
		return time.Time{}, false
	}
	return ent.fetchedAt, true
}

// Wait blocks until all background snapshot writes have finished
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) persistAsync(tenantID string, snap snapshot) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
		defer cancel()

		raw, err := json.Marshal(snap)
		if err == nil {
			err = c.store.Set(ctx, snapshotKey(tenantID), raw)
		}
		if err != nil {
			c.logger.WithError(err).WithField("tenant_id", tenantID).
				Warn("tenant snapshot persist failed")
		}
	}()
}

func cloneData(in Data) Data {
	out := make(Data, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
