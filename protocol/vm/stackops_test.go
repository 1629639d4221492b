package vm

import "testing"

func TestStackOps(t *testing.T) {
	runCases(t, []runCase{
		{name: "nop", code: "00", stack: ints(1), wantStack: ints(1)},
		{name: "swap", code: "01", stack: ints(1, 2), wantStack: ints(2, 1)},
		{name: "xchg0", code: "02", stack: ints(1, 2, 3), wantStack: ints(3, 2, 1)},
		{name: "xchg1", code: "12", stack: ints(1, 2, 3), wantStack: ints(2, 1, 3)},
		{name: "xchg", code: "1013", stack: ints(1, 2, 3, 4), wantStack: ints(3, 2, 1, 4)},
		{name: "dup", code: "20", stack: ints(1), wantStack: ints(1, 1)},
		{name: "over", code: "21", stack: ints(1, 2), wantStack: ints(1, 2, 1)},
		{name: "push", code: "22", stack: ints(1, 2, 3), wantStack: ints(1, 2, 3, 1)},
		{name: "drop", code: "30", stack: ints(1, 2), wantStack: ints(1)},
		{name: "nip", code: "31", stack: ints(1, 2), wantStack: ints(2)},
		{name: "pop", code: "32", stack: ints(1, 2, 3), wantStack: ints(3, 2)},
		{name: "xchg2", code: "5012", stack: ints(1, 2, 3), wantStack: ints(3, 2, 1)},
		{name: "push2", code: "5310", stack: ints(1, 2), wantStack: ints(1, 2, 1, 2)},
		{name: "rot", code: "58", stack: ints(1, 2, 3), wantStack: ints(2, 3, 1)},
		{name: "rotrev", code: "59", stack: ints(1, 2, 3), wantStack: ints(3, 1, 2)},
		{name: "swap2", code: "5A", stack: ints(1, 2, 3, 4), wantStack: ints(3, 4, 1, 2)},
		{name: "drop2", code: "5B", stack: ints(1, 2, 3), wantStack: ints(1)},
		{name: "dup2", code: "5C", stack: ints(1, 2), wantStack: ints(1, 2, 1, 2)},
		{name: "over2", code: "5D", stack: ints(1, 2, 3, 4), wantStack: ints(1, 2, 3, 4, 1, 2)},
		{name: "reverse", code: "5E10", stack: ints(1, 2, 3, 4), wantStack: ints(1, 4, 3, 2)},
		{name: "blkdrop", code: "5F02", stack: ints(1, 2, 3), wantStack: ints(1)},
		{name: "blkpush", code: "5F21", stack: ints(1, 2), wantStack: ints(1, 2, 1, 2)},
		{name: "pick", code: "60", stack: ints(5, 6, 1), wantStack: ints(5, 6, 5)},
		{name: "rollx", code: "61", stack: ints(1, 2, 3, 2), wantStack: ints(2, 3, 1)},
		{name: "-rollx", code: "62", stack: ints(1, 2, 3, 2), wantStack: ints(3, 1, 2)},
		{name: "dropx", code: "65", stack: ints(1, 2, 3, 2), wantStack: ints(1)},
		{name: "tuck", code: "66", stack: ints(1, 2), wantStack: ints(2, 1, 2)},
		{name: "xchgx", code: "67", stack: ints(1, 2, 3, 2), wantStack: ints(3, 2, 1)},
		{name: "depth", code: "68", stack: ints(7, 7), wantStack: ints(7, 7, 2)},
		{name: "chkdepth", code: "69", stack: ints(7, 1), wantStack: ints(7)},
		{name: "onlytopx", code: "6A", stack: ints(1, 2, 3, 2), wantStack: ints(2, 3)},
		{name: "onlyx", code: "6B", stack: ints(1, 2, 3, 2), wantStack: ints(1, 2)},
		{name: "blkdrop2", code: "6C21", stack: ints(1, 2, 3, 4), wantStack: ints(1, 4)},
	})
}

func TestStackOpErrors(t *testing.T) {
	runCases(t, []runCase{{
		name:      "swap underflow",
		code:      "01",
		stack:     ints(1),
		wantExit:  ExcStackUnderflow,
		wantStack: ints(0),
	}, {
		name:      "push beyond depth",
		code:      "25",
		stack:     ints(1, 2),
		wantExit:  ExcStackUnderflow,
		wantStack: ints(0),
	}, {
		name:      "chkdepth",
		code:      "69",
		stack:     ints(7, 3),
		wantExit:  ExcStackUnderflow,
		wantStack: ints(0),
	}, {
		name:      "pick range",
		code:      "60",
		stack:     ints(256),
		wantExit:  ExcRangeCheck,
		wantStack: ints(0),
	}, {
		name:      "xchg reserved operand",
		code:      "1011",
		wantExit:  ExcInvalidOpcode,
		wantStack: ints(0),
	}})
}

func TestStackCopyGas(t *testing.T) {
	// ONLYTOPX keeping 40 of 41 entries pays for the 8 beyond 32.
	stack := make([]Value, 41)
	for i := range stack {
		stack[i] = NewInt(int64(i))
	}
	res, err := Run(asm(t, "6A"), WithStack(append(stack, NewInt(40))...))
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != ExitOK {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
	if want := int64(18 + 8 + GasImplicitRet); res.GasUsed != want {
		t.Errorf("gas used = %d, want %d", res.GasUsed, want)
	}
	if res.Stack.Depth() != 40 {
		t.Errorf("depth = %d, want 40", res.Stack.Depth())
	}
}
