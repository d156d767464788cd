package crab

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAddSchemaDedup(t *testing.T) {
	f := newTestFile(t)

	id1, url1, err := addSchema(f, "https://example.com/a")
	if err != nil {
		t.Fatalf("addSchema: %v", err)
	}
	id2, url2, err := addSchema(f, "https://example.com/b")
	if err != nil {
		t.Fatalf("addSchema: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("distinct URLs got the same id %d", id1)
	}

	id1Again, url1Again, err := addSchema(f, "https://example.com/a")
	if err != nil {
		t.Fatalf("addSchema (repeat): %v", err)
	}
	if id1Again != id1 || url1Again != url1 {
		t.Errorf("re-adding an existing schema returned (%d, %q), want (%d, %q)",
			id1Again, url1Again, id1, url1)
	}
	_ = url2
}

func TestResolveAssignsEverySectionSchema(t *testing.T) {
	f := newTestFile(t)
	for i := 0; i < 5; i++ {
		s, err := f.AddSection()
		if err != nil {
			t.Fatalf("AddSection: %v", err)
		}
		if !s.SchemaResolved() {
			t.Errorf("section %d: SchemaResolved() = false after AddSection", s.Number())
		}
		if s.Schema() != CrabSchemaURL {
			t.Errorf("section %d: Schema() = %q, want %q", s.Number(), s.Schema(), CrabSchemaURL)
		}
	}
}

func TestResolveDetectsBadSchemaID(t *testing.T) {
	f := newTestFile(t)
	s, err := f.AddSection()
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	s.schemaID = 0xFFFF // no such schema exists

	if err := resolve(f); err == nil {
		t.Fatalf("resolve: got nil error for an out-of-range schema id")
	}
	if s.SchemaResolved() {
		t.Errorf("the offending section is still marked resolved")
	}
	// Other sections' schemas are independent and remain resolved.
	if !f.sections[0].SchemaResolved() {
		t.Errorf("section 0's schema was cleared by an unrelated section's failure")
	}
}

func TestPurposeTableRoundTrip(t *testing.T) {
	stringData := []byte("first\x00second\x00")
	pt := PurposeTable{
		SchemaURL:      "https://example.com/purposes",
		NumSupplements: 2,
		Names:          map[uint32]string{0: "first", 1: "second"},
	}
	payload, stringAppend := EncodePurposeTable(pt, stringData)
	fullString := append(append([]byte{}, stringData...), stringAppend...)

	s := &Section{data: payload}
	stringSection := &Section{data: fullString}

	got, err := DecodePurposeTable(s, stringSection)
	if err != nil {
		t.Fatalf("DecodePurposeTable: %v", err)
	}
	if diff := cmp.Diff(pt, got); diff != "" {
		t.Errorf("PurposeTable round trip: unexpected diff (-want +got):\n%s", diff)
	}
}

func TestPurposeTableRoundTripSparseKeys(t *testing.T) {
	pt := PurposeTable{
		SchemaURL: "https://example.com/purposes",
		Names:     map[uint32]string{0: "first", 2: "third"},
	}
	payload, stringAppend := EncodePurposeTable(pt, nil)
	fullString := append([]byte{}, stringAppend...)

	s := &Section{data: payload}
	stringSection := &Section{data: fullString}

	got, err := DecodePurposeTable(s, stringSection)
	if err != nil {
		t.Fatalf("DecodePurposeTable: %v", err)
	}
	want := PurposeTable{
		SchemaURL: pt.SchemaURL,
		Names:     map[uint32]string{0: "first", 1: "", 2: "third"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PurposeTable round trip with a sparse key: unexpected diff (-want +got):\n%s", diff)
	}
}
