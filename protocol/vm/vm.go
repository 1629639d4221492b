package vm

import (
	"fmt"
	"io"

	"github.com/mnill/tycho-vm/encoding/bufpool"
	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// MaxDataDepth bounds the depth of c4 and c5 at commit.
const MaxDataDepth = 512

// LibraryProvider resolves library cells by hash.
type LibraryProvider interface {
	Lookup(h cell.Hash) (*cell.Cell, bool)
}

// Libraries is a LibraryProvider backed by a map.
type Libraries map[cell.Hash]*cell.Cell

// Lookup implements LibraryProvider.
func (l Libraries) Lookup(h cell.Hash) (*cell.Cell, bool) {
	c, ok := l[h]
	return c, ok
}

// Add registers c under its hash.
func (l Libraries) Add(c *cell.Cell) { l[c.Hash()] = c }

type noLibraries struct{}

func (noLibraries) Lookup(cell.Hash) (*cell.Cell, bool) { return nil, false }

// Machine is the execution state of one run.
// It is not safe for concurrent use; separate machines
// may share cells freely.
type Machine struct {
	code  cell.Slice
	stack *Stack
	regs  Registers
	cp    int
	gas   gasMeter

	steps     int64
	stepLimit int64

	libs  LibraryProvider
	trace func(*Instruction)
	debug io.Writer

	quit0, quit1 *QuitCont
	excQuit      *ExcQuitCont

	selector bool
	push0    bool
	data     *cell.Cell
	ctx      Tuple
	hasCtx   bool
	noCode   bool

	halted   bool
	exitCode int
	noCommit bool

	committed bool
	c4, c5    *cell.Cell
}

// An Option configures a Machine.
type Option func(*Machine)

// WithData sets the initial c4.
func WithData(c *cell.Cell) Option { return func(vm *Machine) { vm.data = c } }

// WithContext sets c7.
func WithContext(t Tuple) Option {
	return func(vm *Machine) { vm.ctx, vm.hasCtx = t, true }
}

// WithStack sets the initial stack, the last value on top.
func WithStack(vals ...Value) Option {
	return func(vm *Machine) { vm.stack = NewStack(vals...) }
}

// WithGas sets the gas parameters.
func WithGas(p GasParams) Option { return func(vm *Machine) { vm.gas = newGasMeter(p) } }

// WithStepLimit stops the run with ErrStepLimit after n steps.
func WithStepLimit(n int64) Option { return func(vm *Machine) { vm.stepLimit = n } }

// WithLibraries sets the provider used to resolve library cells.
func WithLibraries(l LibraryProvider) Option { return func(vm *Machine) { vm.libs = l } }

// WithSelector makes c3 a continuation over the code instead of
// Quit(11), pushing 0 first if push0 is set.
func WithSelector(push0 bool) Option {
	return func(vm *Machine) { vm.selector, vm.push0 = true, push0 }
}

// WithTrace calls f with every instruction before it executes.
func WithTrace(f func(*Instruction)) Option { return func(vm *Machine) { vm.trace = f } }

// WithDebug directs the output of debug instructions to w.
func WithDebug(w io.Writer) Option { return func(vm *Machine) { vm.debug = w } }

// New returns a machine ready to run code. A library cell as code
// is resolved through the configured libraries; a nil or
// unresolvable code cell makes the run end with ExcFatal.
func New(code *cell.Cell, opts ...Option) *Machine {
	vm := &Machine{
		stack:   new(Stack),
		gas:     newGasMeter(UnlimitedGas),
		libs:    noLibraries{},
		quit0:   &QuitCont{code: ExitOK},
		quit1:   &QuitCont{code: ExitAlt},
		excQuit: &ExcQuitCont{},
	}
	for _, opt := range opts {
		opt(vm)
	}

	if code != nil && code.Exotic() {
		code = vm.resolveCode(code)
	}
	if code == nil {
		vm.noCode = true
		code = cell.Empty()
	}
	vm.code = code.BeginParse()

	vm.regs.c[0] = vm.quit0
	vm.regs.c[1] = vm.quit1
	vm.regs.c[2] = vm.excQuit
	if vm.selector {
		if vm.push0 {
			vm.stack.pushInt64(0)
		}
		vm.regs.c[3] = NewOrdCont(vm.code, vm.cp)
	} else {
		vm.regs.c[3] = &QuitCont{code: ExitNoHandler}
	}
	if vm.data == nil {
		vm.data = cell.Empty()
	}
	vm.regs.d[0] = vm.data
	vm.regs.d[1] = cell.Empty()
	if !vm.hasCtx {
		vm.ctx = Tuple{}
	}
	vm.regs.c7, vm.regs.hasC7 = vm.ctx, true
	return vm
}

func (vm *Machine) resolveCode(c *cell.Cell) *cell.Cell {
	h, ok := c.LibraryHash()
	if !ok {
		return nil
	}
	lib, ok := vm.libs.Lookup(h)
	if !ok || lib.Exotic() {
		return nil
	}
	return lib
}

// Result is the outcome of a finished run.
type Result struct {
	ExitCode  int
	Stack     *Stack
	Data      *cell.Cell // committed c4, nil unless Committed
	Actions   *cell.Cell // committed c5, nil unless Committed
	Committed bool
	GasUsed   int64
	Accepted  bool // the gas credit was dropped
	Steps     int64
}

// Run runs code to completion.
func Run(code *cell.Cell, opts ...Option) (*Result, error) {
	return New(code, opts...).Run()
}

// Run executes steps until the machine halts. It returns a non-nil
// error only for ErrStepLimit, together with the partial result,
// and for an internal failure (ErrUnexpected).
func (vm *Machine) Run() (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, errors.WithDetailf(ErrUnexpected, "panic: %v", r)
		}
	}()

	if vm.noCode {
		vm.haltNoCommit(ExcFatal)
		return vm.Result(), nil
	}
	for !vm.halted {
		if _, err := vm.Step(); err != nil {
			if err == ErrStepLimit {
				return vm.Result(), err
			}
			return nil, err
		}
	}
	return vm.Result(), nil
}

// Step executes one instruction, an implicit jump or return, or the
// dispatch of an exception raised by it. It reports whether the
// machine has halted.
func (vm *Machine) Step() (halted bool, err error) {
	if vm.halted {
		return true, ErrHalted
	}
	if vm.stepLimit > 0 && vm.steps >= vm.stepLimit {
		vm.haltNoCommit(ExitFatal)
		return true, ErrStepLimit
	}
	vm.steps++
	if err := vm.step(); err != nil {
		vm.raise(err)
	}
	if vm.halted {
		vm.finish()
	}
	return vm.halted, nil
}

func (vm *Machine) step() error {
	if vm.code.BitsLeft() > 0 {
		return vm.dispatch()
	}
	if vm.code.RefsLeft() > 0 {
		if err := vm.gas.consume(GasImplicitJmpRef); err != nil {
			return err
		}
		next, _ := vm.code.PreloadRef(0)
		k, err := vm.refToCont(next)
		if err != nil {
			return err
		}
		return vm.jump(k)
	}
	if err := vm.gas.consume(GasImplicitRet); err != nil {
		return err
	}
	return vm.ret()
}

func (vm *Machine) dispatch() error {
	ins, rest, err := decodeWith(codepage0, vm.code)
	if err != nil {
		if gerr := vm.gas.consume(GasPerInstruction); gerr != nil {
			return gerr
		}
		return err
	}
	if err := vm.gas.consumeInstr(ins.Bits, ins.Refs); err != nil {
		return err
	}
	vm.code = rest
	if vm.trace != nil {
		vm.trace(ins)
	}
	return ins.entry.exec(vm, ins)
}

// raise hands err to the exception handler in c2. The dispatch
// counts as a step of its own.
func (vm *Machine) raise(err error) {
	vm.steps++
	if isOutOfGas(err) {
		vm.outOfGas()
		return
	}
	exc := exceptionOf(err)
	if err2 := vm.throwException(exc.Code, exc.Param); err2 != nil {
		if isOutOfGas(err2) {
			vm.steps++
			vm.outOfGas()
			return
		}
		vm.haltNoCommit(exc.Code)
	}
}

func (vm *Machine) outOfGas() {
	vm.stack = NewStack(NewInt(vm.gas.consumed()))
	vm.haltNoCommit(ExitOutOfGas)
}

func (vm *Machine) halt(code int) {
	vm.halted = true
	vm.exitCode = code
}

func (vm *Machine) haltNoCommit(code int) {
	vm.halt(code)
	vm.noCommit = true
}

func (vm *Machine) finish() {
	if vm.noCommit || (vm.exitCode != ExitOK && vm.exitCode != ExitAlt) {
		return
	}
	if !vm.commit() {
		vm.stack = NewStack(NewInt(0))
		vm.exitCode = ExcCellOverflow
	}
}

// commit records c4 and c5 as the run's output
// if both are fit to persist.
func (vm *Machine) commit() bool {
	c4, c5 := vm.regs.d[0], vm.regs.d[1]
	if c4 == nil || c5 == nil {
		return false
	}
	if c4.Level() != 0 || c5.Level() != 0 || c4.Depth() > MaxDataDepth || c5.Depth() > MaxDataDepth {
		return false
	}
	vm.committed, vm.c4, vm.c5 = true, c4, c5
	return true
}

// Result returns the outcome so far.
func (vm *Machine) Result() *Result {
	used := vm.gas.consumed()
	if used > vm.gas.base {
		used = vm.gas.base
	}
	res := &Result{
		ExitCode:  vm.exitCode,
		Stack:     vm.stack.Clone(),
		Committed: vm.committed,
		GasUsed:   used,
		Accepted:  vm.gas.credit == 0,
		Steps:     vm.steps,
	}
	if vm.committed {
		res.Data, res.Actions = vm.c4, vm.c5
	}
	return res
}

// Halted reports whether the machine has stopped.
func (vm *Machine) Halted() bool { return vm.halted }

// ExitCode returns the exit code of a halted machine.
func (vm *Machine) ExitCode() int { return vm.exitCode }

// Stack returns the current stack. The caller must not modify it.
func (vm *Machine) Stack() *Stack { return vm.stack }

// Register returns control register i, or nil if it is undefined.
func (vm *Machine) Register(i int) Value { return vm.regs.Get(i) }

// Code returns the code left in the current continuation.
func (vm *Machine) Code() cell.Slice { return vm.code }

// GasUsed returns the gas consumed so far.
func (vm *Machine) GasUsed() int64 { return vm.gas.consumed() }

// Gas returns the current gas parameters.
func (vm *Machine) Gas() GasParams { return vm.gas.params() }

// Steps returns the number of steps taken.
func (vm *Machine) Steps() int64 { return vm.steps }

func (vm *Machine) setCP(cp int) error {
	if cp != 0 {
		return errors.WithDetailf(ErrInvalidOpcode, "code page %d", cp)
	}
	vm.cp = cp
	return nil
}

// loadCell charges for loading c and returns a slice over its data,
// resolving a library cell to the cell it names.
func (vm *Machine) loadCell(c *cell.Cell) (cell.Slice, error) {
	if err := vm.gas.consumeLoad(c); err != nil {
		return cell.Slice{}, err
	}
	if !c.Exotic() {
		return c.BeginParse(), nil
	}
	lib, err := vm.resolveLibrary(c)
	if err != nil {
		return cell.Slice{}, err
	}
	if lib.Exotic() {
		return cell.Slice{}, errors.WithDetail(ErrCellUnderflow, "library resolves to an exotic cell")
	}
	return lib.BeginParse(), nil
}

// resolveLibrary returns the cell a library cell names.
func (vm *Machine) resolveLibrary(c *cell.Cell) (*cell.Cell, error) {
	h, ok := c.LibraryHash()
	if !ok {
		return nil, errors.WithDetail(ErrCellUnderflow, "unexpected exotic cell")
	}
	lib, ok := vm.libs.Lookup(h)
	if !ok {
		return nil, errors.WithDetailf(ErrCellUnderflow, "library %s not found", h)
	}
	if err := vm.gas.consumeLoad(lib); err != nil {
		return nil, err
	}
	return lib, nil
}

func (vm *Machine) refToCont(c *cell.Cell) (*OrdCont, error) {
	code, err := vm.loadCell(c)
	if err != nil {
		return nil, err
	}
	return NewOrdCont(code, vm.cp), nil
}

// debugf writes each message with a single Write, so machines
// sharing a debug writer do not interleave lines.
func (vm *Machine) debugf(format string, args ...interface{}) {
	if vm.debug == nil {
		return
	}
	buf := bufpool.Get()
	fmt.Fprintf(buf, format, args...)
	vm.debug.Write(buf.Bytes())
	bufpool.Put(buf)
}
