package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mnill/tycho-vm/log"
	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/protocol/vm"
)

func disasmCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	refs := fs.Bool("r", false, "also disassemble referenced cells")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: cellvm disasm [-r] [code...]")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	code, err := readCode(fs.Args(), os.Stdin)
	if err != nil {
		fatalln("error:", err)
	}
	if err := disasm(ctx, code, 0, *refs); err != nil {
		os.Exit(1)
	}
}

func disasm(ctx context.Context, c *cell.Cell, depth int, refs bool) error {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "\t"
	}
	list, err := vm.Disassemble(c.BeginParse())
	for _, ins := range list {
		fmt.Printf("%s%s\n", indent, ins)
	}
	if err != nil {
		log.Error(ctx, err, "disassembling ", c)
		fmt.Printf("%s(%s)\n", indent, err)
		return err
	}
	if !refs {
		return nil
	}
	for i := 0; i < c.RefLen(); i++ {
		r := c.Ref(i)
		fmt.Printf("%s%s:\n", indent, r)
		if err := disasm(ctx, r, depth+1, refs); err != nil {
			return err
		}
	}
	return nil
}
