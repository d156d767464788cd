// Package crabfmt renders tabular CLI output (crab list, crab help) with a
// two-phase tabularizer: one pass measures column widths, a second pass
// emits padded cells against those widths. Callers drive a single loop
// twice via Table.Phase, writing identical cells both times.
//
// Unlike the format this was ported from, which kept one Table in a
// package-level global for convenience in single-threaded callers, Table
// values are passed explicitly between calls — nothing here is shared
// mutable state.
package crabfmt

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mattn/go-isatty"
)

// Table accumulates column widths on its first Phase and emits aligned
// cells on its second. Use it as:
//
//	t := crabfmt.New(os.Stdout)
//	for t.Phase() {
//		t.Emits("NAME")
//		t.Emits("SIZE")
//		t.EndRow()
//		t.DividerRow()
//		for _, row := range rows {
//			t.Emits(row.Name)
//			t.Emitu(row.Size)
//			t.EndRow()
//		}
//	}
type Table struct {
	out         io.Writer
	phase       int
	inhibitions int

	horiz, vert, cross, pad string
	colWidths                []int

	logCol, tw, softspace int
}

// New returns a Table that writes to out, choosing box-drawing characters
// if out looks like a terminal (via go-isatty) and plain ASCII otherwise,
// so piped output (e.g. `crab list | grep`) stays easy to parse.
func New(out io.Writer) *Table {
	t := &Table{out: out}
	if f, ok := out.(interface{ Fd() uintptr }); ok && isatty.IsTerminal(f.Fd()) {
		t.Drawing("─", " │ ", "─┼─", " ")
	} else {
		t.Drawing("-", " | ", "-+-", " ")
	}
	return t
}

// Drawing overrides the horizontal, vertical, cross, and padding strings
// used to draw dividers and cell separators. Any argument left "" keeps
// its current value.
func (t *Table) Drawing(horiz, vert, cross, pad string) {
	if horiz != "" {
		t.horiz = horiz
	}
	if vert != "" {
		t.vert = vert
	}
	if cross != "" {
		t.cross = cross
	}
	if pad != "" {
		t.pad = pad
	}
}

// Phase advances the tabularizer to its next phase and reports whether the
// caller's loop body should run again: true during the measuring pass
// (1) and the printing pass (2), false once both have completed.
func (t *Table) Phase() bool {
	if t.logCol != 0 {
		panic("crabfmt: Phase called mid-row")
	}
	t.phase++
	if t.phase > 2 {
		return false
	}
	return true
}

// DividerRow writes a horizontal rule spanning every column seen so far.
// A no-op during the measuring pass, since column widths aren't known yet.
func (t *Table) DividerRow() {
	if t.phase == 1 {
		return
	}
	for i, w := range t.colWidths {
		if i > 0 {
			fmt.Fprint(t.out, t.cross)
		}
		for j := 0; j < w; j++ {
			fmt.Fprint(t.out, t.horiz)
		}
	}
	fmt.Fprintln(t.out)
}

// EndRow finishes the current row, resetting per-row state. During the
// printing pass it also writes the row's trailing newline.
func (t *Table) EndRow() {
	t.logCol = 0
	t.tw = 0
	t.softspace = 0
	if t.phase == 2 {
		fmt.Fprintln(t.out)
	}
}

// Hold inhibits the next h cell boundaries, so consecutive Emit calls are
// concatenated into a single logical cell instead of starting new ones.
func (t *Table) Hold(h int) {
	t.inhibitions += h
}

// Emitc emits a single rune as a one-character cell fragment.
func (t *Table) Emitc(c rune) {
	t.Emits(string(c))
}

// Emitu emits an unsigned integer as a cell fragment.
func (t *Table) Emitu(i uint64) {
	t.Emits(strconv.FormatUint(i, 10))
}

// Emiti emits a signed integer as a cell fragment.
func (t *Table) Emiti(i int64) {
	t.Emits(strconv.FormatInt(i, 10))
}

// Emits emits s as a cell fragment. Unless inhibited by Hold, this closes
// the current logical cell and advances to the next column.
func (t *Table) Emits(s string) {
	if t.logCol == len(t.colWidths) {
		t.colWidths = append(t.colWidths, 0)
	}

	if t.phase == 2 {
		if t.softspace > 0 {
			t.softspace--
			for t.softspace > 0 {
				fmt.Fprint(t.out, t.pad)
				t.softspace--
			}
			fmt.Fprint(t.out, t.vert)
		}
		fmt.Fprint(t.out, s)
	}

	t.tw += len(s)
	if t.tw > t.colWidths[t.logCol] {
		t.colWidths[t.logCol] = t.tw
	}

	t.inhibitions--
	if t.inhibitions < 0 {
		t.softspace = 1 + t.colWidths[t.logCol] - t.tw
		t.tw = 0
		t.logCol++
		t.inhibitions = 0
	}
}
