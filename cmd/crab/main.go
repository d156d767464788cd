// Command crab is the reference CLI for the CRAB container format: create,
// list, add to, repurpose, overwrite, wipe, and dump sections of a .crab
// file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/o11c/crab"
)

var debug = flag.Bool("debug", false, "format error messages with additional detail")

// bumpRlimitNOFILE raises RLIMIT_NOFILE to the kernel maximum before
// dump/add stream large blobs through mmap.
func bumpRlimitNOFILE() error {
	var fileMax, nrOpen uint64
	{
		b, err := ioutil.ReadFile("/proc/sys/fs/file-max")
		if err != nil {
			return err
		}
		fileMax, err = strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
		if err != nil {
			return err
		}
	}
	{
		b, err := ioutil.ReadFile("/proc/sys/fs/nr_open")
		if err != nil {
			return err
		}
		nrOpen, err = strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
		if err != nil {
			return err
		}
	}
	max := fileMax
	if nrOpen < max {
		max = nrOpen
	}
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &unix.Rlimit{Max: max, Cur: max})
}

type verb struct {
	fn   func(ctx context.Context, args []string) error
	help string
}

var verbs = map[string]verb{
	"new":       {cmdNew, "Create a new, empty CRAB file."},
	"list":      {cmdList, "List sections of a CRAB file."},
	"add":       {cmdAdd, "Add one or more sections to a CRAB file."},
	"repurpose": {cmdRepurpose, "Assign schema and purpose to a section."},
	"store":     {cmdStore, "Replace the data of a section."},
	"wipe":      {cmdWipe, "Clear a section's data, schema, and purpose."},
	"dump":      {cmdDump, "Write a section's data to a file."},
	"help":      {cmdHelp, "Show this message."},
}

func funcmain() (err error) {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		return cmdHelp(context.Background(), nil)
	}
	name, rest := args[0], args[1:]

	v, ok := verbs[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "crab: unknown command %q\n", name)
		fmt.Fprintf(os.Stderr, "syntax: crab <command> [options]\n")
		os.Exit(2)
	}

	if name == "add" || name == "dump" {
		if err := bumpRlimitNOFILE(); err != nil {
			log.Printf("Warning: bumping RLIMIT_NOFILE failed: %v", err)
		}
	}

	ctx, canc := crab.InterruptibleContext()
	defer canc()

	// openOrDie registers each *crab.File it hands out with RegisterAtExit
	// instead of the verb deferring the close itself, so a file opened by
	// the verb is still closed whether it returns with an error or not.
	defer func() {
		if atExitErr := crab.RunAtExit(); atExitErr != nil && err == nil {
			err = atExitErr
		}
	}()

	if err := v.fn(ctx, rest); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", name, err)
		}
		return fmt.Errorf("%s: %v", name, err)
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openOrDie opens filename with FlagPError set (so the underlying syscall
// or format failure is already printed to stderr) plus whatever additional
// flags the caller needs, returning a plain error for funcmain to wrap. The
// returned file is registered with RegisterAtExit so funcmain closes it
// once the verb returns, regardless of whether it returned an error.
func openOrDie(filename string, extra crab.OpenFlag) (*crab.File, error) {
	f, err := crab.Open(filename, crab.FlagPError|extra)
	if err != nil {
		return nil, err
	}
	crab.RegisterAtExit(f.Close)
	return f, nil
}

func closeAndSave(f *crab.File) error {
	if err := f.Save(0); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
