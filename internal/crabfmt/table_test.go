package crabfmt

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	tbl := &Table{out: &buf}
	tbl.Drawing("-", " | ", "-+-", " ")

	rows := [][2]string{
		{"a", "1"},
		{"bb", "22"},
		{"ccc", "333"},
	}
	for tbl.Phase() {
		for _, row := range rows {
			tbl.Emits(row[0])
			tbl.Emits(row[1])
			tbl.EndRow()
		}
	}

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != len(rows) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(rows), out)
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, rows[i][0]) {
			t.Errorf("line %d = %q, want prefix %q", i, line, rows[i][0])
		}
		if !strings.Contains(line, rows[i][1]) {
			t.Errorf("line %d = %q, want to contain %q", i, line, rows[i][1])
		}
	}
	// Every row's second column must start at the same byte offset.
	firstColWidth := strings.Index(lines[0], " | ")
	for i, line := range lines[1:] {
		if idx := strings.Index(line, " | "); idx != firstColWidth {
			t.Errorf("line %d: column separator at %d, want %d", i+1, idx, firstColWidth)
		}
	}
}

func TestTableHold(t *testing.T) {
	var buf bytes.Buffer
	tbl := &Table{out: &buf}
	tbl.Drawing("-", " | ", "-+-", " ")

	for tbl.Phase() {
		tbl.Hold(1)
		tbl.Emits("foo")
		tbl.Emits("bar")
		tbl.EndRow()
	}

	want := "foobar\n"
	if got := buf.String(); got != want {
		t.Errorf("with Hold(1), got %q, want %q", got, want)
	}
}

func TestTableDividerRow(t *testing.T) {
	var buf bytes.Buffer
	tbl := &Table{out: &buf}
	tbl.Drawing("-", " | ", "-+-", " ")

	for tbl.Phase() {
		tbl.Emits("ab")
		tbl.Emits("c")
		tbl.EndRow()
		tbl.DividerRow()
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%q", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "-+-") {
		t.Errorf("divider row = %q, want it to contain the cross string", lines[1])
	}
}
