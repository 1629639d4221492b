// Package bufpool is a freelist for bytes.Buffer objects.
package bufpool

import (
	"bytes"
	"sync"
)

var pool = &sync.Pool{New: func() interface{} { return new(bytes.Buffer) }}

// Get returns an empty bytes.Buffer from the free list.
// The caller should call Put when finished with it and must not
// keep the slice returned by Bytes after that.
func Get() *bytes.Buffer {
	return pool.Get().(*bytes.Buffer)
}

// Put resets b and returns it to the free list.
func Put(b *bytes.Buffer) {
	b.Reset()
	pool.Put(b)
}
