// Command cellvm runs, disassembles and checks machine code.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/mnill/tycho-vm/env"
	"github.com/mnill/tycho-vm/log"
	"github.com/mnill/tycho-vm/protocol/vm"
)

// config vars
var (
	gasLimit  = env.Int64("CELLVM_GAS_LIMIT", 0)
	gasMax    = env.Int64("CELLVM_GAS_MAX", 0)
	gasCredit = env.Int64("CELLVM_GAS_CREDIT", 0)
	stepLimit = env.Int64("CELLVM_STEP_LIMIT", 0)
	parallel  = env.Int("CELLVM_PARALLEL", 4)
	logRuns   = env.Bool("CELLVM_LOG", false)
)

type command struct {
	f    func(context.Context, []string)
	help string
}

var commands = map[string]*command{
	"run":     {runCmd, "run code read from the arguments or stdin"},
	"disasm":  {disasmCmd, "print the instructions of some code"},
	"check":   {checkCmd, "check TOML run fixtures"},
	"sigprog": {sigprogCmd, "print the signature program for an Ed25519 key"},
}

func main() {
	env.Parse()
	log.SetOutput(io.Discard)
	if *logRuns {
		log.SetOutput(os.Stderr)
	}
	log.SetPrefix("app", "cellvm")

	if len(os.Args) < 2 {
		help(os.Stdout)
		os.Exit(0)
	}
	cmd := commands[os.Args[1]]
	if cmd == nil {
		fmt.Fprintln(os.Stderr, "unknown command:", os.Args[1])
		help(os.Stderr)
		os.Exit(2)
	}
	ctx := log.WithRunID(context.Background(), newRunID())
	cmd.f(ctx, os.Args[2:])
}

// gasParams returns the gas bounds from the environment.
// A zero limit means no limit.
func gasParams() vm.GasParams {
	if *gasLimit <= 0 {
		return vm.UnlimitedGas
	}
	p := vm.GasParams{Max: *gasMax, Limit: *gasLimit, Credit: *gasCredit}
	if p.Max < p.Limit {
		p.Max = p.Limit
	}
	if p.Max == 0 {
		p.Max = math.MaxInt64
	}
	return p
}

func newRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

func fatalln(v ...interface{}) {
	fmt.Fprintln(os.Stderr, v...)
	os.Exit(2)
}

func help(w io.Writer) {
	fmt.Fprintln(w, "usage: cellvm [command] [arguments]")
	fmt.Fprint(w, "\nThe commands are:\n\n")
	var names []string
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "\t%-8s %s\n", name, commands[name].help)
	}
	fmt.Fprint(w, `
Configuration is read from the environment:

	CELLVM_GAS_LIMIT   gas limit, 0 for none
	CELLVM_GAS_MAX     gas limit after ACCEPT
	CELLVM_GAS_CREDIT  extra gas before ACCEPT
	CELLVM_STEP_LIMIT  maximum steps, 0 for none
	CELLVM_PARALLEL    fixture cases checked at once
	CELLVM_LOG         log runs to stderr
`)
}
