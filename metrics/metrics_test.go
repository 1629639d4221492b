package metrics

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/codahale/metrics"
)

func TestRecordRun(t *testing.T) {
	metrics.Reset()
	gasHistOnce = sync.Once{}

	RecordRun(0, 3, 100)
	RecordRun(0, 2, 50)
	RecordRun(-14, 1, 1000)

	counters, _ := metrics.Snapshot()
	cases := map[string]uint64{
		"vm.runs":     3,
		"vm.exit.0":   2,
		"vm.exit.-14": 1,
		"vm.steps":    6,
		"vm.gas":      1150,
	}
	for name, want := range cases {
		if got := counters[name]; got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "vm.runs=3\n") {
		t.Errorf("snapshot missing vm.runs:\n%s", buf.String())
	}
}

func TestGasStats(t *testing.T) {
	g := NewGasStats()
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			g.Record(v)
		}(int64(i))
	}
	wg.Wait()

	if got := g.Count(); got != 100 {
		t.Errorf("count = %d, want 100", got)
	}
	if got := g.Max(); got != 100 {
		t.Errorf("max = %d, want 100", got)
	}
	if got := g.Quantile(50); got != 50 {
		t.Errorf("p50 = %d, want 50", got)
	}
	g.Record(-5)
	if got := g.Count(); got != 101 {
		t.Errorf("count after negative = %d, want 101", got)
	}
}

func BenchmarkRecordRun(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		RecordRun(0, 10, 1000)
	}
}
