package crab

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func tempCrabPath(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "crabtest")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "test.crab")
}

func TestNewSaveOpenRoundTrip(t *testing.T) {
	path := tempCrabPath(t)

	f, err := Open(path, FlagNew)
	if err != nil {
		t.Fatalf("Open FlagNew: %v", err)
	}
	s, err := f.AddSection()
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if err := s.SetSchemaAndPurpose("https://example.com/widget", PurposeRaw); err != nil {
		t.Fatalf("SetSchemaAndPurpose: %v", err)
	}
	if err := s.SetData(Copy, []byte("widget payload")); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := f.Save(0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f2, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	defer f2.Close()

	if got, want := f2.NumSections(), uint32(3); got != want {
		t.Fatalf("NumSections() = %d, want %d", got, want)
	}
	s2, err := f2.Section(2)
	if err != nil {
		t.Fatalf("Section(2): %v", err)
	}
	if s2.Schema() != "https://example.com/widget" {
		t.Errorf("Schema() = %q, want %q", s2.Schema(), "https://example.com/widget")
	}
	if s2.Purpose() != PurposeRaw {
		t.Errorf("Purpose() = %v, want %v", s2.Purpose(), PurposeRaw)
	}
	if !bytes.Equal(s2.Data(), []byte("widget payload")) {
		t.Errorf("Data() = %q, want %q", s2.Data(), "widget payload")
	}
}

func TestSaveWithReopenPreservesSectionIdentity(t *testing.T) {
	path := tempCrabPath(t)

	f, err := Open(path, FlagNew|FlagWrite)
	if err != nil {
		t.Fatalf("Open FlagNew: %v", err)
	}
	defer f.Close()

	s, err := f.AddSection()
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if err := s.SetData(Copy, []byte("before")); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := f.Save(FlagReopen); err != nil {
		t.Fatalf("Save FlagReopen: %v", err)
	}

	// s must still be the same object, now borrowing from the mapping.
	if s.own != ownBorrow {
		t.Errorf("after FlagReopen, section own = %v, want ownBorrow", s.own)
	}
	if !bytes.Equal(s.Data(), []byte("before")) {
		t.Errorf("after FlagReopen, Data() = %q, want %q", s.Data(), "before")
	}
	if f.sections[s.Number()] != s {
		t.Errorf("FlagReopen replaced the Section object at index %d", s.Number())
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	path := tempCrabPath(t)
	if err := ioutil.WriteFile(path, []byte{0x83, 'C', 'R'}, 0644); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path, FlagError)
	if err == nil {
		t.Fatalf("Open: got nil error for a truncated file")
	}
	if f == nil {
		t.Fatalf("Open with FlagError: got nil *File on failure")
	}
	if f.Err() == nil {
		t.Errorf("Err() = nil after a failed Open")
	}
}

func TestAddSectionManyDistinctSchemas(t *testing.T) {
	path := tempCrabPath(t)
	f, err := Open(path, FlagNew)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	const n = 50
	for i := 0; i < n; i++ {
		s, err := f.AddSection()
		if err != nil {
			t.Fatalf("AddSection %d: %v", i, err)
		}
		url := "https://example.com/schema/" + string(rune('a'+i%26))
		if err := s.SetSchemaAndPurpose(url, PurposeRaw); err != nil {
			t.Fatalf("SetSchemaAndPurpose %d: %v", i, err)
		}
	}
	if err := f.Save(0); err != nil {
		t.Fatalf("Save: %v", err)
	}
}
