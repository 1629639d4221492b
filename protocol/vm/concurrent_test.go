package vm

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/errgroup"
)

func TestConcurrentRuns(t *testing.T) {
	// Machines share the opcode table and code cells but no state.
	code := asm(t, "70 73 91A4 E4 75 C8 CB07 C9 ED54")
	const n = 16
	results := make([]*Result, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			res, err := Run(code, WithGas(GasParams{Max: 10000, Limit: 10000}))
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if results[0].ExitCode != ExitOK || !results[0].Committed {
		t.Fatalf("exit %d committed %v", results[0].ExitCode, results[0].Committed)
	}
	cfg := spew.ConfigState{Indent: " ", SortKeys: true}
	want := cfg.Sdump(results[0].Stack.Items(), results[0].GasUsed, results[0].Data.Hash())
	for i, res := range results[1:] {
		if got := cfg.Sdump(res.Stack.Items(), res.GasUsed, res.Data.Hash()); got != want {
			t.Errorf("run %d differs:\n%s\nwant:\n%s", i+1, got, want)
		}
	}
}
