package targeting

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

type compiledPattern struct {
	rx  *regexp.Regexp
	err error
}

// PatternCache is a bounded, concurrency-safe cache of compiled regex
// patterns. Compile failures are cached too, so a bad pattern stays a
// non-match without being recompiled.
type PatternCache struct {
	entries *lru.Cache[string, compiledPattern]
}

// NewPatternCache returns a cache holding at most size patterns.
func NewPatternCache(size int) (*PatternCache, error) {
	entries, err := lru.New[string, compiledPattern](size)
	if err != nil {
		return nil, err
	}
	return &PatternCache{entries: entries}, nil
}

// Compile implements properties.PatternCompiler.
func (c *PatternCache) Compile(pattern string) (*regexp.Regexp, error) {
	if hit, ok := c.entries.Get(pattern); ok {
		return hit.rx, hit.err
	}
	rx, err := regexp.Compile(pattern)
	c.entries.Add(pattern, compiledPattern{rx: rx, err: err})
	return rx, err
}

// Len returns the number of cached patterns.
func (c *PatternCache) Len() int {
	return c.entries.Len()
}
