// Package metrics records machine runs.
// Defined metrics:
//   vm.runs (counter)
//   vm.steps (counter)
//   vm.gas (counter)
//   vm.exit.0 (counter)
//   vm.exit.-14 (counter)
//   vm.exit.NNN (etc)
//   vm.gas.P50, vm.gas.P99 (etc, gauges from the gas histogram)
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/codahale/hdrhistogram"
	"github.com/codahale/metrics"
)

// MaxGas is the largest gas amount tracked by the histograms.
// Larger values are recorded as MaxGas.
const MaxGas = 1 << 40

var (
	gasHistOnce sync.Once
	gasHist     *metrics.Histogram
)

func gasHistogram() *metrics.Histogram {
	gasHistOnce.Do(func() {
		gasHist = metrics.NewHistogram("vm.gas", 0, MaxGas, 3)
	})
	return gasHist
}

// RecordRun counts a finished run with the given exit code,
// step count and gas used.
func RecordRun(exitCode int, steps, gasUsed int64) {
	metrics.Counter("vm.runs").Add()
	metrics.Counter("vm.exit." + strconv.Itoa(exitCode)).Add()
	if steps > 0 {
		metrics.Counter("vm.steps").AddN(uint64(steps))
	}
	gasUsed = clamp(gasUsed)
	metrics.Counter("vm.gas").AddN(uint64(gasUsed))
	gasHistogram().RecordValue(gasUsed)
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > MaxGas {
		return MaxGas
	}
	return v
}

// WriteSnapshot writes the current counters and gauges, one
// name=value pair per line, sorted by name.
func WriteSnapshot(w io.Writer) error {
	counters, gauges := metrics.Snapshot()
	lines := make([]string, 0, len(counters)+len(gauges))
	for k, v := range counters {
		lines = append(lines, fmt.Sprintf("%s=%d", k, v))
	}
	for k, v := range gauges {
		lines = append(lines, fmt.Sprintf("%s=%d", k, v))
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// GasStats accumulates the gas used by a batch of runs.
// It is safe for concurrent use.
type GasStats struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

func NewGasStats() *GasStats {
	return &GasStats{hist: hdrhistogram.New(0, MaxGas, 3)}
}

// Record adds one run's gas.
func (g *GasStats) Record(gasUsed int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hist.RecordValue(clamp(gasUsed))
}

// Count returns the number of runs recorded.
func (g *GasStats) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hist.TotalCount()
}

// Quantile returns the gas at quantile q, given in percent.
func (g *GasStats) Quantile(q float64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hist.ValueAtQuantile(q)
}

// Max returns the most gas used by any recorded run.
func (g *GasStats) Max() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hist.Max()
}

// String summarizes the batch as count, median, p99 and max.
func (g *GasStats) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := g.hist
	return fmt.Sprintf("runs=%d gas.p50=%d gas.p99=%d gas.max=%d",
		h.TotalCount(), h.ValueAtQuantile(50), h.ValueAtQuantile(99), h.Max())
}
