package extract

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoized extractions.
const DefaultCacheSize = 500

// Extractor memoizes PlainText keyed by the raw content string.
//
// Lookups use Peek so reads never refresh recency; combined with insert-only
// Add this makes the LRU evict the oldest inserted entry first.
type Extractor struct {
	cache *lru.Cache[string, string]
}

// New returns an Extractor holding at most capacity entries. A non-positive
// capacity falls back to DefaultCacheSize.
func New(capacity int) *Extractor {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	cache, err := lru.New[string, string](capacity)
	if err != nil {
		// lru.New only errors on non-positive size which we guard above.
		panic(err)
	}
	return &Extractor{cache: cache}
}

// PlainText returns the cached extraction of content, computing it on a miss.
func (e *Extractor) PlainText(content string) string {
	if content == "" {
		return ""
	}
	if text, ok := e.cache.Peek(content); ok {
		return text
	}
	text := PlainText(content)
	e.cache.Add(content, text)
	return text
}

// Len reports how many extractions are cached.
func (e *Extractor) Len() int {
	return e.cache.Len()
}

// Contains reports whether content has a cached extraction.
func (e *Extractor) Contains(content string) bool {
	return e.cache.Contains(content)
}
