package main

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/o11c/crab"
)

func cmdRepurpose(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: crab repurpose <filename.crab> <section-number> <schema> <purpose>")
	}

	f, err := openOrDie(args[0], 0)
	if err != nil {
		return err
	}

	section, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return xerrors.Errorf("<section-number>: %w", err)
	}
	schema := args[2]
	purpose, err := strconv.ParseUint(args[3], 0, 16)
	if err != nil {
		return xerrors.Errorf("<purpose>: %w", err)
	}

	s, err := f.Section(uint32(section))
	if err != nil {
		return err
	}
	if err := s.SetSchemaAndPurpose(schema, crab.Purpose(purpose)); err != nil {
		return err
	}
	return f.Save(0)
}
