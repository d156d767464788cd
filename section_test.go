package crab

import (
	"bytes"
	"testing"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	f := &File{}
	if err := f.createNew(); err != nil {
		t.Fatalf("createNew: %v", err)
	}
	return f
}

func TestSetDataModes(t *testing.T) {
	f := newTestFile(t)
	s, err := f.AddSection()
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	src := []byte("hello")
	if err := s.SetData(Copy, src); err != nil {
		t.Fatalf("SetData Copy: %v", err)
	}
	if !bytes.Equal(s.Data(), src) {
		t.Fatalf("Data() = %q, want %q", s.Data(), src)
	}
	src[0] = 'H'
	if bytes.Equal(s.Data(), src) {
		t.Fatalf("SetData Copy aliased the source slice")
	}

	owned := []byte("owned")
	if err := s.SetData(Own, owned); err != nil {
		t.Fatalf("SetData Own: %v", err)
	}
	if s.own != ownOwn {
		t.Errorf("own = %v, want ownOwn", s.own)
	}

	borrowed := []byte("borrowed")
	if err := s.SetData(Borrow, borrowed); err != nil {
		t.Fatalf("SetData Borrow: %v", err)
	}
	if s.own != ownBorrow {
		t.Errorf("own = %v, want ownBorrow", s.own)
	}
	borrowed[0] = 'B'
	if !bytes.Equal(s.Data(), borrowed) {
		t.Fatalf("SetData Borrow did not alias the source slice")
	}

	if err := s.SetData(Copy, nil); err != nil {
		t.Fatalf("SetData nil: %v", err)
	}
	if s.DataSize() != 0 || s.own != ownNone {
		t.Errorf("SetData(nil) left DataSize=%d own=%v, want 0/ownNone", s.DataSize(), s.own)
	}
}

func TestSectionCopy(t *testing.T) {
	f := newTestFile(t)
	src, err := f.AddSection()
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if err := src.SetSchemaAndPurpose("https://example.com/schema", PurposeRaw); err != nil {
		t.Fatalf("SetSchemaAndPurpose: %v", err)
	}
	if err := src.SetData(Copy, []byte("payload")); err != nil {
		t.Fatalf("SetData: %v", err)
	}

	dst, err := f.AddSection()
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if err := dst.Copy(Copy, src); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	if dst.Schema() != src.Schema() {
		t.Errorf("dst.Schema() = %q, want %q", dst.Schema(), src.Schema())
	}
	if dst.Purpose() != src.Purpose() {
		t.Errorf("dst.Purpose() = %v, want %v", dst.Purpose(), src.Purpose())
	}
	if !bytes.Equal(dst.Data(), []byte("payload")) {
		t.Errorf("dst.Data() = %q, want %q", dst.Data(), "payload")
	}
	if !bytes.Equal(src.Data(), []byte("payload")) {
		t.Errorf("Copy with mode Copy mutated src.Data() to %q", src.Data())
	}
}

func TestSectionCopyOwnTransfersOwnership(t *testing.T) {
	f := newTestFile(t)
	src, err := f.AddSection()
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if err := src.SetData(Copy, []byte("payload")); err != nil {
		t.Fatalf("SetData: %v", err)
	}

	dst, err := f.AddSection()
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if err := dst.Copy(Own, src); err != nil {
		t.Fatalf("Copy Own: %v", err)
	}
	if src.DataSize() != 0 || src.own != ownNone {
		t.Errorf("Copy(Own) left src with DataSize=%d own=%v, want 0/ownNone", src.DataSize(), src.own)
	}
	if !bytes.Equal(dst.Data(), []byte("payload")) {
		t.Errorf("dst.Data() = %q, want %q", dst.Data(), "payload")
	}
}
