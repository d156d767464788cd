package main

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/o11c/crab"
)

func cmdStore(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: crab store <filename.crab> <section-number> {<blob> | ''}")
	}

	f, err := openOrDie(args[0], 0)
	if err != nil {
		return err
	}

	section, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return xerrors.Errorf("<section-number>: %w", err)
	}

	var data []byte
	if args[2] != "" {
		data, err = readBlob(args[2])
		if err != nil {
			return err
		}
	}

	s, err := f.Section(uint32(section))
	if err != nil {
		return err
	}
	if err := s.SetData(crab.Copy, data); err != nil {
		return err
	}
	return f.Save(0)
}
