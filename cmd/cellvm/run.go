package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/log"
	"github.com/mnill/tycho-vm/metrics"
	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/protocol/vm"
	"github.com/mnill/tycho-vm/protocol/vm/vmtest"
)

// valueList collects -v flags.
type valueList []vm.Value

func (l *valueList) String() string {
	parts := make([]string, 0, len(*l))
	for _, v := range *l {
		parts = append(parts, vm.FormatValue(v))
	}
	return strings.Join(parts, " ")
}

func (l *valueList) Set(s string) error {
	v, err := vmtest.ParseValue(s)
	if err != nil {
		return err
	}
	*l = append(*l, v)
	return nil
}

// libList collects -lib flags as library cells.
type libList struct{ libs vm.Libraries }

func (l *libList) String() string { return fmt.Sprintf("%d libraries", len(l.libs)) }

func (l *libList) Set(s string) error {
	c, err := vmtest.Assemble(s)
	if err != nil {
		return err
	}
	if l.libs == nil {
		l.libs = vm.Libraries{}
	}
	l.libs.Add(c)
	return nil
}

const runHelp = `usage: cellvm run [flags] [code...]

Run assembles its arguments, or stdin if there are none, as hex
bit strings and runs the code. It prints the exit code, gas used
and the final stack.

Exit code 0 indicates the run ended with exit code 0 or 1.
Exit code 1 indicates any other exit code.
Exit code 2 indicates a usage or I/O error.

Flags:
`

func runCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		stack    valueList
		libs     libList
		trace    = fs.Bool("t", false, "print execution trace to stderr")
		dump     = fs.Bool("stack", false, "dump the final stack in detail")
		data     = fs.String("data", "", "persistent data cell `c4` as a hex bit string")
		selector = fs.Bool("selector", false, "run the code as a method selector")
		showMet  = fs.Bool("metrics", false, "print run metrics")
	)
	fs.Var(&stack, "v", "push `value` on the initial stack (repeatable)")
	fs.Var(&libs, "lib", "make the `code` available as a library cell (repeatable)")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, runHelp)
		fs.PrintDefaults()
	}
	fs.Parse(args)

	code, err := readCode(fs.Args(), os.Stdin)
	if err != nil {
		fatalln("error:", err)
	}

	opts := []vm.Option{
		vm.WithStack(stack...),
		vm.WithGas(gasParams()),
		vm.WithDebug(os.Stderr),
	}
	if *selector {
		opts = append(opts, vm.WithSelector(false))
	}
	if libs.libs != nil {
		opts = append(opts, vm.WithLibraries(vm.NewLibraryCache(libs.libs, 0)))
	}
	if *stepLimit > 0 {
		opts = append(opts, vm.WithStepLimit(*stepLimit))
	}
	if *data != "" {
		d, err := vmtest.Assemble(*data)
		if err != nil {
			fatalln("error: data:", err)
		}
		opts = append(opts, vm.WithData(d))
	}
	if *trace {
		opts = append(opts, vm.WithTrace(func(ins *vm.Instruction) {
			fmt.Fprintln(os.Stderr, ins)
		}))
	}

	res, err := vm.Run(code, opts...)
	if err != nil && errors.Root(err) != vm.ErrStepLimit {
		log.Error(ctx, err)
		fatalln("error:", err)
	}
	metrics.RecordRun(res.ExitCode, res.Steps, res.GasUsed)
	log.Printkv(ctx, "exit", res.ExitCode, "gas", res.GasUsed, "steps", res.Steps, "committed", res.Committed)

	fmt.Printf("exit code %d\n", res.ExitCode)
	fmt.Printf("gas used %d\n", res.GasUsed)
	fmt.Println("stack", res.Stack)
	if res.Committed {
		fmt.Println("data", res.Data)
		fmt.Println("actions", res.Actions)
	}
	if *dump {
		spew.Fdump(os.Stdout, res.Stack.Items())
	}
	if *showMet {
		metrics.WriteSnapshot(os.Stdout)
	}
	if res.ExitCode != vm.ExitOK && res.ExitCode != vm.ExitAlt {
		os.Exit(1)
	}
}

// readCode assembles args, or r if args is empty, into a code cell.
func readCode(args []string, r io.Reader) (*cell.Cell, error) {
	src := strings.Join(args, " ")
	if len(args) == 0 {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "reading stdin")
		}
		src = string(b)
	}
	return vmtest.Assemble(src)
}
