package metrics

import "sync"

// CardinalityLimiter caps the number of distinct label sets the
// collector will create series for. Sets past the cap get folded into a
// catch-all label value instead of new series.
type CardinalityLimiter struct {
	mu   sync.RWMutex
	seen map[string]struct{}
	max  int
}

// NewCardinalityLimiter creates a limiter that admits up to max
// distinct label sets.
func NewCardinalityLimiter(max int) *CardinalityLimiter {
	return &CardinalityLimiter{
		seen: make(map[string]struct{}, 64),
		max:  max,
	}
}

// Allow reports whether labelSet may get its own series. Known sets are
// always allowed; new sets are admitted until the cap is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	_, ok := cl.seen[labelSet]
	cl.mu.RUnlock()
	if ok {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Re-check: another goroutine may have admitted it between locks.
	if _, ok := cl.seen[labelSet]; ok {
		return true
	}
	if len(cl.seen) >= cl.max {
		return false
	}
	cl.seen[labelSet] = struct{}{}
	return true
}

// Count returns how many distinct label sets have been admitted.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.seen)
}
