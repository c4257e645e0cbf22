// Package cache provides named memoization slots for derived structures.
// Slots follow the batch-then-rebuild policy: writes elsewhere never
// invalidate a slot implicitly; the caller drops it after a batch of writes
// and the next read rebuilds.
package cache

import "sync"

// Cache holds lazily built values keyed by slot identifier. Instances are
// independent; identifiers come from configuration rather than process-wide
// globals so tests can run many caches side by side.
type Cache struct {
	slots sync.Map // identifier → built value
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// GetOrBuild returns the slot's cached value, building and storing it on
// first use after an invalidation. Two readers racing on a cold slot may
// both build; the rebuild is idempotent and the last write wins, which is
// accepted in place of serializing rebuilds.
func (c *Cache) GetOrBuild(slot string, build func() any) any {
	if v, ok := c.slots.Load(slot); ok {
		return v
	}
	v := build()
	c.slots.Store(slot, v)
	return v
}

// Peek returns the cached value without building.
func (c *Cache) Peek(slot string) (any, bool) {
	return c.slots.Load(slot)
}

// Invalidate drops one slot; the next GetOrBuild triggers a full rebuild.
func (c *Cache) Invalidate(slot string) {
	c.slots.Delete(slot)
}

// InvalidateAll drops every slot.
func (c *Cache) InvalidateAll() {
	c.slots.Range(func(k, _ any) bool {
		c.slots.Delete(k)
		return true
	})
}
