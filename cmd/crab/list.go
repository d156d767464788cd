package main

import (
	"context"
	"fmt"
	"os"

	"github.com/o11c/crab"
	"github.com/o11c/crab/internal/crabfmt"
)

func cmdList(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: crab list <filename.crab>")
	}
	f, err := openOrDie(args[0], 0)
	if err != nil {
		return err
	}

	t := crabfmt.New(os.Stdout)
	for t.Phase() {
		t.Emits("#")
		t.Emits("Schema")
		t.Emits("P")
		t.Emits("sz")
		t.EndRow()
		t.DividerRow()

		n := f.NumSections()
		for i := uint32(0); i < n; i++ {
			s, err := f.Section(i)
			if err != nil {
				return err
			}
			t.Emitu(uint64(s.Number()))
			t.Emits(s.Schema())
			t.Emitu(uint64(s.Purpose()))
			t.Emitu(uint64(s.DataSize()))
			t.EndRow()
		}
	}
	return nil
}
