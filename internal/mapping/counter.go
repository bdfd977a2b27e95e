package mapping

import "sync"

// Counter assigns sequential, 1-based indices per entity type within a
// single mapping's lifetime. It never rewinds or reuses a number: each
// call to Next either creates the entity type's entry at 1 or increments
// the existing one, and the increment-then-read happens under one lock
// so concurrent detectors racing on the same entity type still get dense,
// unique numbers.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Next returns the next index for entityType, starting at 1.
func (c *Counter) Next(entityType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[entityType]++
	return c.counts[entityType]
}

// Current returns the most recently issued index for entityType, or 0 if
// Next has never been called for it.
func (c *Counter) Current(entityType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[entityType]
}

// advanceTo raises entityType's counter to n if it is not already at
// least n, used when rebuilding a Mapping from its wire record without
// replaying every entry through Next.
func (c *Counter) advanceTo(entityType string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.counts[entityType] {
		c.counts[entityType] = n
	}
}
