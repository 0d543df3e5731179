// internal/services/masters/cache.go
package masters

import (
	"context"
	"sync"
	"time"

	"loan-management-service/internal/models"
)

// Cache holds one fetched copy of the masters hierarchy for a fixed TTL.
// Concurrent callers that miss share a single in-flight fetch instead of
// each hitting the store.
type Cache struct {
	ttl time.Duration

	mu        sync.Mutex
	data      *models.MastersData
	fetchedAt time.Time
	inflight  *fetchCall

	now func() time.Time
}

type fetchCall struct {
	done chan struct{}
	data *models.MastersData
	err  error
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now}
}

// Get returns the cached hierarchy if fresh, otherwise runs fetch. Callers
// arriving while a fetch is in flight wait for its result rather than
// starting their own.
func (c *Cache) Get(ctx context.Context, fetch func(ctx context.Context) (*models.MastersData, error)) (*models.MastersData, error) {
	c.mu.Lock()
	if c.data != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		data := c.data
		c.mu.Unlock()
		return data, nil
	}

	if c.inflight != nil {
		call := c.inflight
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.data, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &fetchCall{done: make(chan struct{})}
	c.inflight = call
	c.mu.Unlock()

	call.data, call.err = fetch(ctx)
	close(call.done)

	c.mu.Lock()
	c.inflight = nil
	if call.err == nil {
		c.data = call.data
		c.fetchedAt = c.now()
	}
	c.mu.Unlock()

	return call.data, call.err
}

// Invalidate drops the cached copy. Called after every masters mutation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.data = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
