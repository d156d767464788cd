package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/xerrors"
)

var dumpFlags = flag.NewFlagSet("dump", flag.ExitOnError)
var dumpGzip = dumpFlags.Bool("gzip", false, "gzip-compress the dumped section before writing it out")

func cmdDump(ctx context.Context, args []string) error {
	const usage = "usage: crab dump [--gzip] <filename.crab> <section-number> <out-file>"
	if err := dumpFlags.Parse(args); err != nil {
		return err
	}
	rest := dumpFlags.Args()
	if len(rest) != 3 {
		return fmt.Errorf(usage)
	}

	f, err := openOrDie(rest[0], 0)
	if err != nil {
		return err
	}

	section, err := strconv.ParseUint(rest[1], 0, 32)
	if err != nil {
		return xerrors.Errorf("<section-number>: %w", err)
	}
	s, err := f.Section(uint32(section))
	if err != nil {
		return err
	}

	out, err := os.Create(rest[2])
	if err != nil {
		return xerrors.Errorf("Create: %w", err)
	}

	if *dumpGzip {
		gw := gzip.NewWriter(out)
		if _, err := gw.Write(s.Data()); err != nil {
			out.Close()
			return xerrors.Errorf("gzip Write: %w", err)
		}
		if err := gw.Close(); err != nil {
			out.Close()
			return xerrors.Errorf("gzip Close: %w", err)
		}
	} else if _, err := out.Write(s.Data()); err != nil {
		out.Close()
		return xerrors.Errorf("Write: %w", err)
	}

	return out.Close()
}
