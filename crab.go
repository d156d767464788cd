// Package crab implements CRAB (Compact Random-Access Binary), a container
// file format for storing a heterogeneous collection of binary "sections" —
// each tagged with a schema URL and a purpose code — in a single on-disk
// artifact designed for memory-mapped, random access.
//
// A CRAB file is self-describing: section 0 always lists the schemas used in
// the file, and a designated string section holds the UTF-8 schema URL
// strings those entries reference. All other sections are opaque to the
// engine beyond their schema and purpose tags; interpreting their payloads
// is the caller's responsibility.
//
// The package is single-threaded and cooperative: a *File is not safe for
// concurrent use, and callers must serialize access externally. There is no
// compression, encryption, or checksumming of section payloads, and edits
// never touch the mapped byte image in place — Save always writes a fresh
// temporary file and atomically renames it over the original.
package crab

// OpenFlag controls the behavior of Open.
type OpenFlag uint

const (
	// FlagWrite maps the file with write permission, allowing existing
	// sections to have their data modified in place via SetData with
	// DataMode Borrow against the mapping. Use with caution.
	FlagWrite OpenFlag = 1 << iota
	// FlagNew creates a new, empty CRAB file in memory instead of opening
	// an existing one. Nothing is written to disk until Save is called.
	FlagNew
	// FlagError asks Open to return a non-nil *File even when opening
	// fails, so that the caller can still inspect File.Err.
	FlagError
	// FlagPError prints a diagnostic line to stderr, strerror-style, after
	// every operation that fails on this file.
	FlagPError
)

// CloseFlag controls the behavior of Save.
type CloseFlag uint

const (
	// FlagReopen releases all owned payloads and unmaps the file after
	// saving, then reopens the freshly written file and reuses the
	// existing *File and *Section objects, so their identities and
	// indices stay stable while their payloads go back to being borrowed
	// from the new mapping.
	FlagReopen CloseFlag = 1 << iota
)

// DataMode selects how SetData and Copy acquire a payload.
type DataMode uint

const (
	// Copy allocates fresh storage and copies the bytes in. This is the
	// zero value and the default when neither Own nor Borrow is given.
	Copy DataMode = 0
	// Own transfers ownership of the given bytes (or, for Copy, of the
	// source section's payload) to the engine, which will release them
	// when the section's data is next replaced or the file is closed.
	Own DataMode = 1
	// Borrow assumes the given bytes (or the source section's payload)
	// outlive the file handle and are never released by the engine.
	Borrow DataMode = 2
)

// Purpose is a 16-bit opcode identifying what a section's payload means
// within its schema. Values 0-4 are reserved by CRAB itself; all other
// values are user-defined within a given schema.
type Purpose uint16

const (
	// PurposeError marks a placeholder or wiped section. It preserves the
	// section's index and relative offsets without implying any meaning.
	PurposeError Purpose = 0
	// PurposeRaw marks data that should be interpreted simply as a
	// sequence of bytes.
	PurposeRaw Purpose = 1
	// PurposeSupplementary marks data that should only be referred to
	// from other sections, such as a string table.
	PurposeSupplementary Purpose = 2
	// PurposeSchema marks the schema list. Always used for section 0.
	PurposeSchema Purpose = 3
	// PurposePurpose marks a textual-purpose-names table. This is
	// optional, need not be in any particular place, and there may be
	// more than one (e.g. after a merge of two files).
	PurposePurpose Purpose = 4
)

// CrabSchemaURL is the built-in schema used for section 0 (the schema list)
// and, by default, for any newly added section before it is repurposed.
const CrabSchemaURL = "https://o11c.github.io/crab/schema.html"

// StringSizeBits is the width, in bits, of the length field within a packed
// string reference (see packURL/unpackURL in codec.go). A packed reference
// encodes start<<StringSizeBits | length, so a single string may be at most
// 2^StringSizeBits - 1 bytes, and a string section may hold fewer than
// 2^(32-StringSizeBits) bytes in total. Not specified by the retrieved CRAB
// format headers; fixed here at a value generous enough for schema URLs.
const StringSizeBits = 8
