package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mnill/tycho-vm/log"
	"github.com/mnill/tycho-vm/metrics"
	"github.com/mnill/tycho-vm/protocol/vm"
	"github.com/mnill/tycho-vm/protocol/vm/vmtest"
)

func checkCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	showMet := fs.Bool("metrics", false, "print run metrics")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: cellvm check [-metrics] file.toml|dir...")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	var files []*vmtest.File
	for _, arg := range fs.Args() {
		fi, err := os.Stat(arg)
		if err != nil {
			fatalln("error:", err)
		}
		if fi.IsDir() {
			dirFiles, err := vmtest.Glob(arg)
			if err != nil {
				fatalln("error:", err)
			}
			files = append(files, dirFiles...)
			continue
		}
		f, err := vmtest.Load(arg)
		if err != nil {
			fatalln("error:", err)
		}
		files = append(files, f)
	}

	stats := metrics.NewGasStats()
	failures, err := vmtest.CheckAll(ctx, files, *parallel, func(c *vmtest.Case, res *vm.Result) {
		stats.Record(res.GasUsed)
		metrics.RecordRun(res.ExitCode, res.Steps, res.GasUsed)
		log.Printkv(ctx, "case", c.Name, "exit", res.ExitCode, "gas", res.GasUsed)
	})
	if err != nil {
		log.Error(ctx, err)
		fatalln("error:", err)
	}
	for _, f := range failures {
		fmt.Println("FAIL", f)
	}
	fmt.Println(stats)
	if *showMet {
		metrics.WriteSnapshot(os.Stdout)
	}
	if len(failures) > 0 {
		fmt.Printf("%d of %d cases failed\n", len(failures), stats.Count())
		os.Exit(1)
	}
}
