package vm

import (
	"strconv"

	"github.com/mnill/tycho-vm/protocol/cell"
)

// A Continuation is a resumable unit of control: a code position
// with saved state, a loop frame, or a terminal quit point.
// Continuations are immutable once they are reachable from the
// stack or a register; code that needs to change one copies it.
type Continuation interface {
	// controlData returns the saved state, or nil for kinds
	// that carry none.
	controlData() *ControlData

	// resume transfers control into the continuation. It returns
	// the continuation to enter next, or nil once control has
	// settled on new code or the machine has halted.
	resume(vm *Machine) (Continuation, error)

	String() string
}

// ControlData is the state a continuation restores on entry.
type ControlData struct {
	NArgs int    // -1: any number of arguments
	Stack *Stack // nil: run on the caller's stack
	Save  Registers
	CP    int // -1: keep the current code page
}

func newControlData(cp int) ControlData {
	return ControlData{NArgs: -1, CP: cp}
}

func (d *ControlData) clone() ControlData {
	d2 := *d
	if d.Stack != nil {
		d2.Stack = d.Stack.Clone()
	}
	return d2
}

// hasArgs reports whether entering a continuation with this data
// moves stack entries around.
func (d *ControlData) hasArgs() bool {
	return d != nil && (d.Stack != nil || d.NArgs >= 0)
}

func hasC0(k Continuation) bool {
	d := k.controlData()
	return d != nil && d.Save.c[0] != nil
}

// forceCdata returns a copy of k with control data that the caller
// may modify, wrapping kinds that carry none.
func forceCdata(k Continuation) (Continuation, *ControlData) {
	switch k := k.(type) {
	case *OrdCont:
		k2 := &OrdCont{code: k.code, data: k.data.clone()}
		return k2, &k2.data
	case *ArgExtCont:
		k2 := &ArgExtCont{data: k.data.clone(), ext: k.ext}
		return k2, &k2.data
	}
	k2 := &ArgExtCont{data: newControlData(-1), ext: k}
	return k2, &k2.data
}

// OrdCont resumes execution of a code slice.
type OrdCont struct {
	code cell.Slice
	data ControlData
}

// NewOrdCont returns a continuation that runs code in code page cp.
func NewOrdCont(code cell.Slice, cp int) *OrdCont {
	return &OrdCont{code: code, data: newControlData(cp)}
}

// Code returns the remaining code.
func (k *OrdCont) Code() cell.Slice { return k.code }

func (k *OrdCont) controlData() *ControlData { return &k.data }

func (k *OrdCont) resume(vm *Machine) (Continuation, error) {
	vm.regs.apply(&k.data.Save)
	vm.code = k.code
	if k.data.CP >= 0 {
		if err := vm.setCP(k.data.CP); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (k *OrdCont) String() string { return "vmc_std " + k.code.String() }

// QuitCont halts the machine with a fixed exit code.
type QuitCont struct {
	code int
}

// ExitCode returns the code the machine halts with.
func (k *QuitCont) ExitCode() int { return k.code }

func (k *QuitCont) controlData() *ControlData { return nil }

func (k *QuitCont) resume(vm *Machine) (Continuation, error) {
	vm.halt(k.code)
	return nil, nil
}

func (k *QuitCont) String() string { return "vmc_quit " + strconv.Itoa(k.code) }

// ExcQuitCont is the default exception handler. It halts with the
// exception code found on the stack. If the code cannot be popped,
// it halts with the code of that failure instead.
type ExcQuitCont struct{}

func (*ExcQuitCont) controlData() *ControlData { return nil }

func (*ExcQuitCont) resume(vm *Machine) (Continuation, error) {
	n, err := vm.stack.PopSmallInt(0, 0xffff)
	if err != nil {
		n = exceptionOf(err).Code
	}
	vm.halt(n)
	return nil, nil
}

func (*ExcQuitCont) String() string { return "vmc_quit_exc" }

// RepeatCont runs body count more times, then after.
type RepeatCont struct {
	count       int64
	body, after Continuation
}

func (k *RepeatCont) controlData() *ControlData { return nil }

func (k *RepeatCont) resume(vm *Machine) (Continuation, error) {
	if k.count <= 0 {
		return k.after, nil
	}
	if hasC0(k.body) {
		return k.body, nil
	}
	vm.regs.c[0] = &RepeatCont{count: k.count - 1, body: k.body, after: k.after}
	return k.body, nil
}

func (k *RepeatCont) String() string { return "vmc_repeat " + strconv.FormatInt(k.count, 10) }

// AgainCont runs body forever.
type AgainCont struct {
	body Continuation
}

func (k *AgainCont) controlData() *ControlData { return nil }

func (k *AgainCont) resume(vm *Machine) (Continuation, error) {
	if !hasC0(k.body) {
		vm.regs.c[0] = k
	}
	return k.body, nil
}

func (k *AgainCont) String() string { return "vmc_again" }

// UntilCont runs body until it leaves true on the stack.
type UntilCont struct {
	body, after Continuation
}

func (k *UntilCont) controlData() *ControlData { return nil }

func (k *UntilCont) resume(vm *Machine) (Continuation, error) {
	done, err := vm.stack.PopBool()
	if err != nil {
		return nil, err
	}
	if done {
		return k.after, nil
	}
	if !hasC0(k.body) {
		vm.regs.c[0] = k
	}
	return k.body, nil
}

func (k *UntilCont) String() string { return "vmc_until" }

// WhileCont alternates between cond and body while cond leaves
// true on the stack. checkCond is set when a condition result
// is waiting on the stack.
type WhileCont struct {
	checkCond         bool
	cond, body, after Continuation
}

func (k *WhileCont) controlData() *ControlData { return nil }

func (k *WhileCont) resume(vm *Machine) (Continuation, error) {
	if !k.checkCond {
		if !hasC0(k.cond) {
			vm.regs.c[0] = &WhileCont{checkCond: true, cond: k.cond, body: k.body, after: k.after}
		}
		return k.cond, nil
	}
	ok, err := vm.stack.PopBool()
	if err != nil {
		return nil, err
	}
	if !ok {
		return k.after, nil
	}
	if !hasC0(k.body) {
		vm.regs.c[0] = &WhileCont{cond: k.cond, body: k.body, after: k.after}
	}
	return k.body, nil
}

func (k *WhileCont) String() string {
	if k.checkCond {
		return "vmc_while_cond"
	}
	return "vmc_while_body"
}

// PushIntCont pushes an integer, then enters next.
type PushIntCont struct {
	value int64
	next  Continuation
}

func (k *PushIntCont) controlData() *ControlData { return nil }

func (k *PushIntCont) resume(vm *Machine) (Continuation, error) {
	vm.stack.pushInt64(k.value)
	return k.next, nil
}

func (k *PushIntCont) String() string { return "vmc_pushint " + strconv.FormatInt(k.value, 10) }

// ArgExtCont attaches control data to a continuation that has none.
type ArgExtCont struct {
	data ControlData
	ext  Continuation
}

func (k *ArgExtCont) controlData() *ControlData { return &k.data }

func (k *ArgExtCont) resume(vm *Machine) (Continuation, error) {
	vm.regs.apply(&k.data.Save)
	if k.data.CP >= 0 {
		if err := vm.setCP(k.data.CP); err != nil {
			return nil, err
		}
	}
	return k.ext, nil
}

func (k *ArgExtCont) String() string { return "vmc_envelope " + k.ext.String() }
