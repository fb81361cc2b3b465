package glossary

import (
	"sync"
	"sync/atomic"
)

const defaultMatcherCacheSize = 256

type matcherSnapshot struct {
	matchers map[string]Matcher
	order    []string
}

// MatcherCache memoizes compiled matchers by dictionary fingerprint. Readers load an
// immutable snapshot; writers copy it, add the new matcher and swap the pointer.
type MatcherCache struct {
	snap    atomic.Pointer[matcherSnapshot]
	writeMu sync.Mutex
	maxSize int

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMatcherCache creates a cache holding at most maxSize matchers. Non-positive
// sizes fall back to a default.
func NewMatcherCache(maxSize int) *MatcherCache {
	if maxSize <= 0 {
		maxSize = defaultMatcherCacheSize
	}
	c := &MatcherCache{maxSize: maxSize}
	c.snap.Store(&matcherSnapshot{matchers: map[string]Matcher{}})
	return c
}

// Annotator returns an annotator for dict, reusing a cached matcher when one was
// compiled for the same term set. Empty dictionaries bypass the cache.
func (c *MatcherCache) Annotator(dict *Dictionary) (*Annotator, error) {
	if dict.Len() == 0 {
		return NewAnnotator(dict)
	}

	key := dict.Fingerprint()
	if m, ok := c.snap.Load().matchers[key]; ok {
		c.hits.Add(1)
		return NewAnnotatorWithMatcher(dict, m), nil
	}
	c.misses.Add(1)

	m, err := Compile(dict)
	if err != nil {
		return nil, err
	}
	c.store(key, m)
	return NewAnnotatorWithMatcher(dict, m), nil
}

func (c *MatcherCache) store(key string, m Matcher) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	old := c.snap.Load()
	if _, exists := old.matchers[key]; exists {
		return
	}

	next := &matcherSnapshot{
		matchers: make(map[string]Matcher, len(old.matchers)+1),
		order:    make([]string, 0, len(old.order)+1),
	}
	order := old.order
	if len(order) >= c.maxSize {
		order = order[len(order)-c.maxSize+1:]
	}
	for _, k := range order {
		next.matchers[k] = old.matchers[k]
		next.order = append(next.order, k)
	}
	next.matchers[key] = m
	next.order = append(next.order, key)

	c.snap.Store(next)
}

// Len reports the number of cached matchers.
func (c *MatcherCache) Len() int {
	return len(c.snap.Load().matchers)
}

// Stats returns hit and miss counters.
func (c *MatcherCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
