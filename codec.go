package crab

import (
	"bytes"
	"encoding/binary"
)

// magic is the 8-byte signature every CRAB file begins with.
var magic = [8]byte{0x83, 'C', 'R', 'B', 0x0D, 0x0A, 0x1A, 0x0A}

// fileHeader is the fixed 24-byte prefix of a CRAB file, big-endian on
// disk. The section-info table immediately follows it.
type fileHeader struct {
	Magic       [8]byte
	Size        uint64
	Reserved    uint32
	NumSections uint32
}

const headerFixedSize = 24 // binary.Size(fileHeader{})

// sectionInfoEntry is one 16-byte record in the section-info table.
type sectionInfoEntry struct {
	Offset   uint64
	Size     uint32
	SchemaID uint16
	Purpose  uint16
}

const sectionInfoSize = 16 // binary.Size(sectionInfoEntry{})

// schemaDataHeader is the fixed 8-byte prefix of section 0's payload
// (purpose SCHEMA), followed by NumSchemas schemaEntry records.
type schemaDataHeader struct {
	StringSection uint32
	Reserved      uint16
	NumSchemas    uint16
}

const schemaHeaderFixedSize = 8 // binary.Size(schemaDataHeader{})

// schemaEntry is one 8-byte record in the schema list.
type schemaEntry struct {
	URL      uint32
	Reserved uint32
}

const schemaEntrySize = 8 // binary.Size(schemaEntry{})

// purposeDataHeader is the fixed 16-byte prefix of a PURPOSE (4) section's
// payload. Unlike schemaEntry, SchemaURL is a packed string reference
// directly, not a schema-local id — this lets purpose tables survive an
// oblivious merge of two files' schema tables.
type purposeDataHeader struct {
	StringSection  uint32
	SchemaURL      uint32
	NumSupplements uint32
	Reserved       uint16
	NumPurposes    uint16
}

const purposeHeaderFixedSize = 16 // binary.Size(purposeDataHeader{})

// purposeEntry is one 8-byte record in a purpose-names table.
type purposeEntry struct {
	Purpose  uint32
	Reserved uint32
}

const purposeEntrySize = 8 // binary.Size(purposeEntry{})

// packURL encodes a byte offset and length into a packed string reference.
func packURL(start, length uint32) uint32 {
	return start<<StringSizeBits | length
}

// unpackURL decodes a packed string reference into its byte offset and
// length.
func unpackURL(v uint32) (start, length uint32) {
	return v >> StringSizeBits, v & (1<<StringSizeBits - 1)
}

func decodeFileHeader(b []byte) (fileHeader, bool) {
	var h fileHeader
	if len(b) < headerFixedSize {
		return h, false
	}
	if err := binary.Read(bytes.NewReader(b[:headerFixedSize]), binary.BigEndian, &h); err != nil {
		return h, false
	}
	return h, true
}

func decodeSectionInfo(b []byte) sectionInfoEntry {
	var e sectionInfoEntry
	// Caller guarantees len(b) >= sectionInfoSize; a short read here is a
	// programming error, not a recoverable format error.
	if err := binary.Read(bytes.NewReader(b[:sectionInfoSize]), binary.BigEndian, &e); err != nil {
		panic("crab: malformed section-info slice: " + err.Error())
	}
	return e
}

func decodeSchemaDataHeader(b []byte) (schemaDataHeader, bool) {
	var h schemaDataHeader
	if len(b) < schemaHeaderFixedSize {
		return h, false
	}
	if err := binary.Read(bytes.NewReader(b[:schemaHeaderFixedSize]), binary.BigEndian, &h); err != nil {
		return h, false
	}
	return h, true
}

func decodeSchemaEntry(b []byte) schemaEntry {
	var e schemaEntry
	if err := binary.Read(bytes.NewReader(b[:schemaEntrySize]), binary.BigEndian, &e); err != nil {
		panic("crab: malformed schema-entry slice: " + err.Error())
	}
	return e
}

func encodeSchemaDataHeader(h schemaDataHeader) []byte {
	var buf bytes.Buffer
	buf.Grow(schemaHeaderFixedSize)
	if err := binary.Write(&buf, binary.BigEndian, h); err != nil {
		panic("crab: encoding schema header: " + err.Error())
	}
	return buf.Bytes()
}

func encodeSchemaEntry(e schemaEntry) []byte {
	var buf bytes.Buffer
	buf.Grow(schemaEntrySize)
	if err := binary.Write(&buf, binary.BigEndian, e); err != nil {
		panic("crab: encoding schema entry: " + err.Error())
	}
	return buf.Bytes()
}

func decodePurposeDataHeader(b []byte) (purposeDataHeader, bool) {
	var h purposeDataHeader
	if len(b) < purposeHeaderFixedSize {
		return h, false
	}
	if err := binary.Read(bytes.NewReader(b[:purposeHeaderFixedSize]), binary.BigEndian, &h); err != nil {
		return h, false
	}
	return h, true
}

func decodePurposeEntry(b []byte) purposeEntry {
	var e purposeEntry
	if err := binary.Read(bytes.NewReader(b[:purposeEntrySize]), binary.BigEndian, &e); err != nil {
		panic("crab: malformed purpose-entry slice: " + err.Error())
	}
	return e
}

func encodePurposeDataHeader(h purposeDataHeader) []byte {
	var buf bytes.Buffer
	buf.Grow(purposeHeaderFixedSize)
	if err := binary.Write(&buf, binary.BigEndian, h); err != nil {
		panic("crab: encoding purpose header: " + err.Error())
	}
	return buf.Bytes()
}

func encodePurposeEntry(e purposeEntry) []byte {
	var buf bytes.Buffer
	buf.Grow(purposeEntrySize)
	if err := binary.Write(&buf, binary.BigEndian, e); err != nil {
		panic("crab: encoding purpose entry: " + err.Error())
	}
	return buf.Bytes()
}

// padLen returns the number of zero-padding bytes required after a payload
// of size n so the next section starts on an 8-byte boundary.
func padLen(n int) int {
	return (8 - n%8) % 8
}

// layout describes where each section's payload will land in a saved file.
type layout struct {
	totalSize      uint64
	sectionOffsets []uint64
}

// computeLayout lays out the sections of f for Save: header, then the
// section-info table, then each payload padded to an 8-byte boundary.
func computeLayout(sections []*Section) layout {
	offsets := make([]uint64, len(sections))
	offset := uint64(headerFixedSize) + uint64(len(sections))*sectionInfoSize
	for i, s := range sections {
		if offset%8 != 0 {
			panic("crab: misaligned section offset during layout")
		}
		offsets[i] = offset
		offset += uint64(len(s.data))
		offset += uint64(padLen(len(s.data)))
	}
	return layout{totalSize: offset, sectionOffsets: offsets}
}
