package vm

import (
	"math"

	"github.com/mnill/tycho-vm/math/checked"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// Gas prices.
const (
	GasPerInstruction = 10
	GasPerBit         = 1
	GasPerRef         = 5
	GasImplicitJmpRef = 10
	GasImplicitRet    = 5
	GasCellLoad       = 100
	GasCellReload     = 25
	GasCellCreate     = 500
	GasException      = 50
	GasTupleEntry     = 1

	freeStackDepth  = 32
	freeNestedJumps = 8
)

// GasParams bounds the gas a run may consume. The run starts with
// Limit+Credit units. ACCEPT raises the limit to Max and drops
// the credit.
type GasParams struct {
	Max    int64
	Limit  int64
	Credit int64
}

// UnlimitedGas is the default when no gas option is given.
var UnlimitedGas = GasParams{Max: math.MaxInt64, Limit: math.MaxInt64}

type gasMeter struct {
	max, limit, credit int64
	base, remaining    int64
	loaded             map[cell.Hash]struct{}
}

func newGasMeter(p GasParams) gasMeter {
	base := checked.SatAddInt64(p.Limit, p.Credit)
	return gasMeter{
		max:       p.Max,
		limit:     p.Limit,
		credit:    p.Credit,
		base:      base,
		remaining: base,
		loaded:    make(map[cell.Hash]struct{}),
	}
}

func (g *gasMeter) consume(n int64) error {
	g.remaining = checked.SatSubInt64(g.remaining, n)
	if g.remaining < 0 {
		return ErrOutOfGas
	}
	return nil
}

// consumed may exceed base once the meter has run out.
func (g *gasMeter) consumed() int64 {
	return checked.SatSubInt64(g.base, g.remaining)
}

func (g *gasMeter) consumeInstr(bits, refs int) error {
	return g.consume(GasPerInstruction + int64(bits)*GasPerBit + int64(refs)*GasPerRef)
}

// consumeStack charges for a stack copy of the given depth.
func (g *gasMeter) consumeStack(depth int) error {
	if depth <= freeStackDepth {
		return nil
	}
	return g.consume(int64(depth - freeStackDepth))
}

func (g *gasMeter) consumeTuple(n int) error {
	return g.consume(int64(n) * GasTupleEntry)
}

// consumeLoad charges for loading c, less if a cell with the same
// hash was loaded before.
func (g *gasMeter) consumeLoad(c *cell.Cell) error {
	h := c.Hash()
	if _, ok := g.loaded[h]; ok {
		return g.consume(GasCellReload)
	}
	g.loaded[h] = struct{}{}
	return g.consume(GasCellLoad)
}

// setLimit installs a new limit, capped at max, and drops the credit.
func (g *gasMeter) setLimit(n int64) error {
	if n < g.consumed() {
		return ErrOutOfGas
	}
	g.changeLimit(n)
	return nil
}

func (g *gasMeter) accept() {
	g.changeLimit(g.max)
}

func (g *gasMeter) changeLimit(n int64) {
	n = checked.MinInt64(n, g.max)
	if n < 0 {
		n = 0
	}
	consumed := g.consumed()
	g.limit, g.credit, g.base = n, 0, n
	g.remaining = n - consumed
}

func (g *gasMeter) params() GasParams {
	return GasParams{Max: g.max, Limit: g.limit, Credit: g.credit}
}
