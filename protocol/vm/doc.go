/*
Package vm implements a stack machine that executes bytecode stored
in trees of cells.

A Machine holds a value stack, the current continuation's code,
control registers c0 through c5 and c7, a code page and a gas meter.
Each step decodes one instruction from the code by longest-prefix
match, charges its gas and runs it. Falling off the end of the code
returns through c0, or jumps to the first reference if one is left.

Exceptions become a jump to the handler in c2, which receives the
parameter and the exception code on a fresh stack. With no handler
installed, or once the gas limit is exceeded, the machine halts
with a nonzero exit code. A run that ends with exit code 0 or 1
commits the persistent data in c4 and the action list in c5.

	code, err := vmutil.NewBuilder().AddInt64(2).AddInt64(3).AddOp(0xA0, 8).Build()
	if err != nil {
		return err
	}
	res, err := vm.Run(code, vm.WithGas(vm.GasParams{Max: 1000, Limit: 1000}))

The zero-value library set resolves no library cells; see
WithLibraries.
*/
package vm
