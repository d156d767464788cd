package crab

import (
	"syscall"

	"golang.org/x/xerrors"
)

// resolve walks every section of f, looks up its local schema id in
// section 0, and records a pointer into the string section's bytes on the
// section. It must be called before any section operation that manipulates
// schemas, and is re-run after every schema-table growth.
//
// If section 0's own format is broken (its header doesn't parse, its size
// disagrees with its declared schema count, or the string section it names
// is out of range), resolve fails outright and every section's schema is
// cleared. Otherwise each section is resolved independently: a section
// whose schema id is out of range, or whose URL's end offset lies past the
// last byte of the string section, or whose byte at that offset
// isn't NUL, loses only its own resolved schema — other sections are
// unaffected — and resolve still returns an error (per spec.md §9(a), a
// File retained via FlagError after such a failure is still usable;
// callers must check File.Err before trusting any Section.Schema).
func resolve(f *File) error {
	clearAll := func() {
		for _, s := range f.sections {
			s.schema = ""
			s.schemaResolved = false
		}
	}

	schemaSection := f.sections[0]
	hdr, ok := decodeSchemaDataHeader(schemaSection.data)
	if !ok {
		clearAll()
		return f.fail("<file format>", syscall.EINVAL, nil)
	}
	numSchemas := int(hdr.NumSchemas)
	if len(schemaSection.data) != schemaHeaderFixedSize+numSchemas*schemaEntrySize {
		clearAll()
		return f.fail("<file format>", syscall.EINVAL, nil)
	}

	stringIndex := schemaSection.number + hdr.StringSection
	if int(stringIndex) >= len(f.sections) {
		clearAll()
		return f.fail("<file format>", syscall.EINVAL, nil)
	}
	stringSection := f.sections[stringIndex]
	stringData := stringSection.data

	ok = true
	for _, s := range f.sections {
		if int(s.schemaID) >= numSchemas {
			s.schema = ""
			s.schemaResolved = false
			ok = false
			continue
		}
		entry := decodeSchemaEntry(schemaSection.data[schemaHeaderFixedSize+int(s.schemaID)*schemaEntrySize:])
		start, length := unpackURL(entry.URL)
		// No overflow: start and length together span only 32 bits.
		end := start + length
		if end >= uint32(len(stringData)) || stringData[end] != 0 {
			s.schema = ""
			s.schemaResolved = false
			ok = false
			continue
		}
		s.schema = string(stringData[start:end])
		s.schemaResolved = true
	}
	if !ok {
		return f.fail("<file format>", syscall.EINVAL, nil)
	}
	return nil
}

// addSchema interns url in f's schema table, returning its file-local id
// and the resolved (now-durable) URL string. If url is already present,
// its existing id is returned and the table is left unchanged.
func addSchema(f *File, url string) (uint16, string, error) {
	schemaSection := f.sections[0]
	hdr, ok := decodeSchemaDataHeader(schemaSection.data)
	if !ok {
		return 0, "", f.fail("<file format>", syscall.EINVAL, nil)
	}
	stringIndex := schemaSection.number + hdr.StringSection
	stringSection := f.sections[stringIndex]

	for i := 0; i < int(hdr.NumSchemas); i++ {
		entry := decodeSchemaEntry(schemaSection.data[schemaHeaderFixedSize+i*schemaEntrySize:])
		start, length := unpackURL(entry.URL)
		end := start + length
		if end >= uint32(len(stringSection.data)) || stringSection.data[end] != 0 {
			return 0, "", f.fail("<file format>", syscall.EINVAL, nil)
		}
		existing := string(stringSection.data[start:end])
		if existing == url {
			return uint16(i), existing, nil
		}
	}

	// Not found: append a new schema entry and a new string.
	if hdr.NumSchemas == 0xFFFF {
		return 0, "", f.fail("<num schemas>", syscall.EOVERFLOW, nil)
	}
	newID := hdr.NumSchemas

	urlLen1 := len(url) + 1 // including the NUL terminator
	if len(url) >= 1<<StringSizeBits {
		return 0, "", f.fail("<string bytes>", syscall.EOVERFLOW, nil)
	}
	newStringSize := len(stringSection.data) + urlLen1
	if newStringSize >= 1<<(32-StringSizeBits) {
		return 0, "", f.fail("<string bytes>", syscall.EOVERFLOW, nil)
	}

	oldStringSize := len(stringSection.data)
	newSchemaData := schemaSection.grow(schemaEntrySize)
	newStringData := stringSection.grow(urlLen1)
	copy(newStringData[oldStringSize:], url)
	newStringData[oldStringSize+len(url)] = 0

	packed := packURL(uint32(oldStringSize), uint32(len(url)))
	copy(newSchemaData[schemaHeaderFixedSize+int(newID)*schemaEntrySize:], encodeSchemaEntry(schemaEntry{URL: packed}))
	hdr.NumSchemas++
	copy(newSchemaData[:schemaHeaderFixedSize], encodeSchemaDataHeader(hdr))

	if err := resolve(f); err != nil {
		// Growth was internally consistent; resolve must succeed.
		panic(xerrors.Errorf("crab: resolve after schema growth: %w", err))
	}
	return newID, url, nil
}

// PurposeTable decodes a PURPOSE (4) section's payload: a textual-name
// table for purpose codes, keyed by a packed string reference to its own
// schema URL rather than a schema-local id, so purpose tables survive an
// oblivious merge of two files' schema tables. This is additive to the
// required round-trip semantics of spec.md; a file need not contain one.
type PurposeTable struct {
	SchemaURL      string
	NumSupplements uint32
	// Names maps a purpose code to its textual name. The wire format has
	// no key field per entry — a purpose code is an entry's position in
	// the array — so EncodePurposeTable fills any code below the highest
	// key present with an empty name rather than omitting it.
	Names map[uint32]string
}

// DecodePurposeTable reads a PurposeTable out of section s, which must have
// purpose PurposePurpose. stringSection holds the NUL-terminated strings
// the table's packed references point into.
func DecodePurposeTable(s, stringSection *Section) (PurposeTable, error) {
	var pt PurposeTable
	hdr, ok := decodePurposeDataHeader(s.data)
	if !ok {
		return pt, xerrors.Errorf("<file format>: purpose table too short")
	}
	start, length := unpackURL(hdr.SchemaURL)
	end := start + length
	if int(end) >= len(stringSection.data) || stringSection.data[end] != 0 {
		return pt, xerrors.Errorf("<file format>: purpose table schema reference")
	}
	pt.SchemaURL = string(stringSection.data[start:end])
	pt.NumSupplements = hdr.NumSupplements
	pt.Names = make(map[uint32]string, hdr.NumPurposes)
	for i := 0; i < int(hdr.NumPurposes); i++ {
		off := purposeHeaderFixedSize + i*purposeEntrySize
		if off+purposeEntrySize > len(s.data) {
			return pt, xerrors.Errorf("<file format>: purpose table truncated")
		}
		entry := decodePurposeEntry(s.data[off:])
		start, length := unpackURL(entry.Purpose)
		end := start + length
		if int(end) >= len(stringSection.data) || stringSection.data[end] != 0 {
			return pt, xerrors.Errorf("<file format>: purpose table name reference")
		}
		pt.Names[uint32(i)] = string(stringSection.data[start:end])
	}
	return pt, nil
}

// EncodePurposeTable renders a PurposeTable to bytes suitable for
// SetData on a section with purpose PurposePurpose, and returns that
// payload plus the bytes that must be appended to the string section whose
// current contents are stringData. Only len(stringData) is used: the schema
// URL and every name are appended anew, even if stringData already holds
// them.
//
// pt.Names need not be dense: EncodePurposeTable emits one entry per
// purpose code from 0 up to the highest key present, writing an empty
// name for any code absent from the map, so NumPurposes always matches
// the number of entries actually written.
func EncodePurposeTable(pt PurposeTable, stringData []byte) (payload, stringAppend []byte) {
	schemaStart := uint32(len(stringData))
	stringAppend = append(stringAppend, pt.SchemaURL...)
	stringAppend = append(stringAppend, 0)

	var numPurposes uint32
	for k := range pt.Names {
		if k+1 > numPurposes {
			numPurposes = k + 1
		}
	}

	hdr := purposeDataHeader{
		SchemaURL:      packURL(schemaStart, uint32(len(pt.SchemaURL))),
		NumSupplements: pt.NumSupplements,
		NumPurposes:    uint16(numPurposes),
	}
	payload = make([]byte, purposeHeaderFixedSize)
	copy(payload, encodePurposeDataHeader(hdr))

	// Deterministic order: by purpose code, from 0 upward.
	for i := uint32(0); i < numPurposes; i++ {
		name := pt.Names[i] // zero value "" fills a gap
		start := uint32(len(stringData)) + uint32(len(stringAppend))
		stringAppend = append(stringAppend, name...)
		stringAppend = append(stringAppend, 0)
		payload = append(payload, encodePurposeEntry(purposeEntry{Purpose: packURL(start, uint32(len(name)))})...)
	}
	return payload, stringAppend
}
