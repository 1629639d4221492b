package vm

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/golang/groupcache/singleflight"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// DefaultLibraryCacheSize is the number of library cells a
// LibraryCache keeps when no size is given.
const DefaultLibraryCacheSize = 1000

var errNoLibrary = errors.New("library not found")

// LibraryCache is a LibraryProvider that remembers the cells found
// by a slower provider, such as one backed by storage. Concurrent
// misses for the same hash share one lookup. Misses are not cached.
// It is safe for concurrent use.
type LibraryCache struct {
	src   LibraryProvider
	group singleflight.Group

	mu  sync.Mutex
	lru *lru.Cache
}

// NewLibraryCache returns a cache of at most size cells in front
// of src.
func NewLibraryCache(src LibraryProvider, size int) *LibraryCache {
	if size <= 0 {
		size = DefaultLibraryCacheSize
	}
	return &LibraryCache{src: src, lru: lru.New(size)}
}

// Lookup implements LibraryProvider.
func (c *LibraryCache) Lookup(h cell.Hash) (*cell.Cell, bool) {
	c.mu.Lock()
	v, ok := c.lru.Get(h)
	c.mu.Unlock()
	if ok {
		return v.(*cell.Cell), true
	}

	v, err := c.group.Do(h.String(), func() (interface{}, error) {
		lib, ok := c.src.Lookup(h)
		if !ok {
			return nil, errNoLibrary
		}
		c.mu.Lock()
		c.lru.Add(h, lib)
		c.mu.Unlock()
		return lib, nil
	})
	if err != nil {
		return nil, false
	}
	return v.(*cell.Cell), true
}

// Len returns the number of cached cells.
func (c *LibraryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
