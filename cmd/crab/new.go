package main

import (
	"context"
	"fmt"

	"github.com/o11c/crab"
)

func cmdNew(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: crab new <filename.crab>")
	}
	f, err := crab.Open(args[0], crab.FlagPError|crab.FlagNew)
	if err != nil {
		return err
	}
	return closeAndSave(f)
}
