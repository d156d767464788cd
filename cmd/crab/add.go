package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/o11c/crab"
)

// readBlob mmaps filename read-only, copies its entire contents into a
// heap buffer, and unmaps it — concurrently safe to call for distinct
// filenames, unlike anything touching a *crab.File.
func readBlob(filename string) ([]byte, error) {
	r, err := mmap.Open(filename)
	if err != nil {
		return nil, xerrors.Errorf("mmap.Open: %w", err)
	}
	defer r.Close()
	buf := make([]byte, r.Len())
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, xerrors.Errorf("ReadAt: %w", err)
	}
	return buf, nil
}

func cmdAdd(ctx context.Context, args []string) error {
	const usage = "usage: crab add <filename.crab> [--schema=<url>] [--purpose=<number>] {<blob> | ''}..."
	if len(args) < 1 {
		return fmt.Errorf(usage)
	}

	f, err := openOrDie(args[0], 0)
	if err != nil {
		return err
	}

	schema := crab.CrabSchemaURL
	purpose := crab.PurposeRaw

	var blobArgs []string
	for _, arg := range args[1:] {
		switch {
		case strings.HasPrefix(arg, "--schema="):
			schema = strings.TrimPrefix(arg, "--schema=")
			purpose = crab.PurposeError
		case strings.HasPrefix(arg, "--purpose="):
			v, err := strconv.ParseUint(strings.TrimPrefix(arg, "--purpose="), 0, 16)
			if err != nil {
				return xerrors.Errorf("--purpose=: %w", err)
			}
			purpose = crab.Purpose(v)
		default:
			blobArgs = append(blobArgs, arg)
		}
	}
	if len(blobArgs) == 0 {
		return fmt.Errorf(usage)
	}

	blobs := make([][]byte, len(blobArgs))
	g, _ := errgroup.WithContext(ctx)
	for i, arg := range blobArgs {
		if arg == "" {
			continue
		}
		i, arg := i, arg
		g.Go(func() error {
			b, err := readBlob(arg)
			if err != nil {
				return err
			}
			blobs[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range blobArgs {
		s, err := f.AddSection()
		if err != nil {
			return err
		}
		if err := s.SetSchemaAndPurpose(schema, purpose); err != nil {
			return err
		}
		if blobs[i] != nil {
			if err := s.SetData(crab.Copy, blobs[i]); err != nil {
				return err
			}
		}
	}

	return f.Save(0)
}
