package vm

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/testutil"
)

type countingLibs struct {
	libs  Libraries
	calls int32
}

func (c *countingLibs) Lookup(h cell.Hash) (*cell.Cell, bool) {
	atomic.AddInt32(&c.calls, 1)
	return c.libs.Lookup(h)
}

func libraryRef(t *testing.T, code *cell.Cell) *cell.Cell {
	t.Helper()
	h := code.Hash()
	b := cell.NewBuilder()
	b.StoreUint(uint64(cell.TypeLibraryRef), 8)
	b.StoreBits(h[:], 256)
	lib, err := b.EndExotic()
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func TestLibraryCache(t *testing.T) {
	code := asm(t, "72 73 A0")
	src := &countingLibs{libs: Libraries{}}
	src.libs.Add(code)
	cache := NewLibraryCache(src, 2)

	lib := libraryRef(t, code)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := Run(lib, WithLibraries(cache))
			if err != nil {
				t.Error(err)
				return
			}
			testutil.ExpectDeepEqual(t, res.Stack.Items(), ints(5), "library code stack")
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&src.calls); got < 1 || got > 8 {
		t.Errorf("source lookups = %d, want between 1 and 8", got)
	}
	before := atomic.LoadInt32(&src.calls)
	if _, ok := cache.Lookup(code.Hash()); !ok {
		t.Fatal("cached library not found")
	}
	if got := atomic.LoadInt32(&src.calls); got != before {
		t.Errorf("cache hit went to the source: %d lookups, want %d", got, before)
	}
	if cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", cache.Len())
	}
}

func TestLibraryCacheMiss(t *testing.T) {
	src := &countingLibs{libs: Libraries{}}
	cache := NewLibraryCache(src, 0)
	var h cell.Hash
	for i := 0; i < 2; i++ {
		if _, ok := cache.Lookup(h); ok {
			t.Fatal("found a library that does not exist")
		}
	}
	if src.calls != 2 {
		t.Errorf("source lookups = %d, want 2 (misses are not cached)", src.calls)
	}
	if cache.Len() != 0 {
		t.Errorf("cache len = %d, want 0", cache.Len())
	}
}

func TestLibraryCacheEviction(t *testing.T) {
	src := &countingLibs{libs: Libraries{}}
	var cells []*cell.Cell
	for _, hex := range []string{"71", "72", "73"} {
		c := asm(t, hex)
		src.libs.Add(c)
		cells = append(cells, c)
	}
	cache := NewLibraryCache(src, 2)
	for _, c := range cells {
		cache.Lookup(c.Hash())
	}
	if cache.Len() != 2 {
		t.Errorf("cache len = %d, want 2", cache.Len())
	}
	cache.Lookup(cells[0].Hash())
	if src.calls != 4 {
		t.Errorf("source lookups = %d, want 4 after the evicted cell is reloaded", src.calls)
	}
}
