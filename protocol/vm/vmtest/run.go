package vmtest

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/protocol/vm"
)

// ErrMismatch is returned when a run's outcome differs from the
// case's expectation.
var ErrMismatch = errors.New("outcome mismatch")

// Program assembles the case's code cell.
func (c *Case) Program() (*cell.Cell, error) {
	var refs []*cell.Cell
	for i, r := range c.Refs {
		rc, err := Assemble(r)
		if err != nil {
			return nil, errors.WithDetailf(errors.Sub(ErrFixture, err), "ref %d", i)
		}
		refs = append(refs, rc)
	}
	code, err := Assemble(c.Code, refs...)
	if err != nil {
		return nil, errors.WithDetail(errors.Sub(ErrFixture, err), "code")
	}
	return code, nil
}

// Options returns the machine options the case describes.
func (c *Case) Options() ([]vm.Option, error) {
	stack, err := parseValues(c.Stack)
	if err != nil {
		return nil, err
	}
	opts := []vm.Option{vm.WithStack(stack...)}
	if c.Data != "" {
		d, err := Assemble(c.Data)
		if err != nil {
			return nil, errors.WithDetail(errors.Sub(ErrFixture, err), "data")
		}
		opts = append(opts, vm.WithData(d))
	}
	if c.Params != nil {
		params, err := parseValues(c.Params)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vm.WithContext(vm.Tuple{vm.Tuple(params)}))
	}
	if c.Gas != nil {
		opts = append(opts, vm.WithGas(vm.GasParams{Max: c.Gas.Max, Limit: c.Gas.Limit, Credit: c.Gas.Credit}))
	}
	if c.StepLimit > 0 {
		opts = append(opts, vm.WithStepLimit(c.StepLimit))
	}
	return opts, nil
}

// Run runs the case with extra options appended to its own.
func (c *Case) Run(extra ...vm.Option) (*vm.Result, error) {
	code, err := c.Program()
	if err != nil {
		return nil, err
	}
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	res, err := vm.Run(code, append(opts, extra...)...)
	if err != nil && errors.Root(err) != vm.ErrStepLimit {
		return nil, err
	}
	return res, nil
}

// Compare reports every way res differs from the case's
// expectation, or nil if it matches.
func (c *Case) Compare(res *vm.Result) error {
	var diffs []string
	if res.ExitCode != c.Exit {
		diffs = append(diffs, fmt.Sprintf("exit code = %d, want %d", res.ExitCode, c.Exit))
	}
	want, err := parseValues(c.WantStack)
	if err != nil {
		return err
	}
	got := res.Stack.Items()
	if len(got) != len(want) {
		diffs = append(diffs, fmt.Sprintf("stack = %s, want %d values", res.Stack, len(want)))
	} else {
		for i := range want {
			g, w := vm.FormatValue(got[i]), vm.FormatValue(want[i])
			if g != w {
				diffs = append(diffs, fmt.Sprintf("stack[%d] = %s, want %s", i, g, w))
			}
		}
	}
	if c.WantGas != 0 && res.GasUsed != c.WantGas {
		diffs = append(diffs, fmt.Sprintf("gas used = %d, want %d", res.GasUsed, c.WantGas))
	}
	if c.Committed != nil && res.Committed != *c.Committed {
		diffs = append(diffs, fmt.Sprintf("committed = %t, want %t", res.Committed, *c.Committed))
	}
	if len(diffs) == 0 {
		return nil
	}
	return errors.WithDetail(ErrMismatch, strings.Join(diffs, "; "))
}

// Check runs the case and compares the outcome.
func (c *Case) Check(extra ...vm.Option) (*vm.Result, error) {
	res, err := c.Run(extra...)
	if err != nil {
		return nil, err
	}
	return res, c.Compare(res)
}

// Failure is a case that did not pass.
type Failure struct {
	File string
	Case string
	Err  error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %s: %s", f.File, f.Case, f.Err)
}

// CheckAll checks every case of files using up to parallel
// goroutines and returns the failures in file and case order.
// Each finished run is passed to done, if non-nil, which must be
// safe for concurrent use.
func CheckAll(ctx context.Context, files []*File, parallel int, done func(*Case, *vm.Result)) ([]Failure, error) {
	type job struct {
		file *File
		c    *Case
		i    int
	}
	var jobs []job
	for _, f := range files {
		for _, c := range f.Cases {
			jobs = append(jobs, job{f, c, len(jobs)})
		}
	}
	if parallel < 1 {
		parallel = 1
	}

	results := make([]error, len(jobs))
	ch := make(chan job)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		for _, j := range jobs {
			select {
			case ch <- j:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < parallel; w++ {
		g.Go(func() error {
			for j := range ch {
				res, err := j.c.Check()
				if errors.Root(err) == ErrFixture {
					return errors.WithDetailf(err, "%s: %s", j.file.Path, j.c.Name)
				}
				results[j.i] = err
				if res != nil && done != nil {
					done(j.c, res)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failures []Failure
	for i, err := range results {
		if err != nil {
			failures = append(failures, Failure{File: jobs[i].file.Path, Case: jobs[i].c.Name, Err: err})
		}
	}
	return failures, nil
}
