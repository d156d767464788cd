package main

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/o11c/crab"
)

func cmdWipe(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: crab wipe <filename.crab> <section-number>")
	}

	f, err := openOrDie(args[0], 0)
	if err != nil {
		return err
	}

	section, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return xerrors.Errorf("<section-number>: %w", err)
	}

	s, err := f.Section(uint32(section))
	if err != nil {
		return err
	}
	if err := s.SetData(crab.Copy, nil); err != nil {
		return err
	}
	if err := s.SetSchemaAndPurpose(crab.CrabSchemaURL, crab.PurposeError); err != nil {
		return err
	}
	return f.Save(0)
}
