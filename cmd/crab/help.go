package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/o11c/crab/internal/crabfmt"
)

func cmdHelp(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("crab help does not take any arguments")
	}

	names := make([]string, 0, len(verbs))
	for name := range verbs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Subcommands:")
	fmt.Println()

	t := crabfmt.New(os.Stdout)
	t.Drawing("", "  ", "", "")
	for t.Phase() {
		for _, name := range names {
			t.Hold(1)
			t.Emits("  crab ")
			t.Emits(name)
			t.Emits(verbs[name].help)
			t.EndRow()
		}
	}
	fmt.Println()
	return nil
}
