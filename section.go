package crab

// ownership tracks where a Section's payload bytes live.
type ownership int

const (
	// ownNone means the section carries no payload at all.
	ownNone ownership = iota
	// ownBorrow means data aliases memory the engine does not control —
	// typically the file's mmap, or caller-supplied memory passed in with
	// DataMode Borrow.
	ownBorrow
	// ownOwn means data is a heap allocation the engine must release (by
	// simply dropping the reference, in Go) when replaced or on close.
	ownOwn
)

// Section is one entry in a File's ordered section sequence: a payload
// together with the schema and purpose tags that describe what it means.
// A Section's index is stable for its lifetime; sections are never removed,
// only wiped (see SetData and SetSchemaAndPurpose).
type Section struct {
	file   *File
	number uint32

	schemaID       uint16
	schema         string
	schemaResolved bool
	purpose        Purpose

	data []byte
	own  ownership
}

// Number returns this section's index within its file. Immutable for the
// section's lifetime.
func (s *Section) Number() uint32 {
	return s.number
}

// Schema returns the resolved schema URL for this section, or "" if it has
// not been resolved (which can only happen transiently on a File retained
// via FlagError after a failed Open).
func (s *Section) Schema() string {
	return s.schema
}

// SchemaResolved reports whether Schema's return value is meaningful.
func (s *Section) SchemaResolved() bool {
	return s.schemaResolved
}

// Purpose returns this section's purpose code.
func (s *Section) Purpose() Purpose {
	return s.purpose
}

// DataSize returns the current size of this section's payload in bytes.
func (s *Section) DataSize() int {
	return len(s.data)
}

// Data returns a view of this section's payload. The returned slice must
// not be retained or mutated beyond the lifetime of the section's current
// data assignment: a borrowed section's Data may alias the file's mapping,
// and any subsequent SetData/Copy/resolve on this file may replace it.
func (s *Section) Data() []byte {
	return s.data
}

// SetSchemaAndPurpose interns url in the file's schema table (assigning it
// a new file-local id if not already present) and sets this section's
// schema and purpose accordingly.
func (s *Section) SetSchemaAndPurpose(url string, purpose Purpose) error {
	id, resolved, err := addSchema(s.file, url)
	if err != nil {
		return err
	}
	s.schemaID = id
	s.schema = resolved
	s.schemaResolved = true
	s.purpose = purpose
	return nil
}

// SetData replaces this section's payload. The empty slice and nil are
// equivalent and always leave the section with no payload (ownNone),
// regardless of the requested mode.
//
// With DataMode Own the engine takes ownership of data and releases the
// section's previous owned payload, if any, first. With DataMode Borrow,
// data must outlive the file. With the default, Copy, the engine allocates
// and copies data.
func (s *Section) SetData(mode DataMode, data []byte) error {
	if len(data) == 0 {
		data = nil
	}
	if data == nil {
		s.data = nil
		s.own = ownNone
		return nil
	}
	switch mode {
	case Own:
		s.data = data
		s.own = ownOwn
	case Borrow:
		s.data = data
		s.own = ownBorrow
	default:
		cp := make([]byte, len(data))
		copy(cp, data)
		s.data = cp
		s.own = ownOwn
	}
	return nil
}

// Copy replaces this section's schema, purpose, and payload with src's,
// re-interning src's schema under this section's own file (so src may
// belong to a different *File entirely — cross-file moves are supported
// this way). mode governs the payload transfer the same way it does for
// SetData: Own transfers ownership from src, which becomes empty; Borrow
// shares the pointer without transfer; the default, Copy, deep-copies the
// bytes.
func (s *Section) Copy(mode DataMode, src *Section) error {
	id, resolved, err := addSchema(s.file, src.schema)
	if err != nil {
		return err
	}

	switch mode {
	case Own:
		s.data = src.data
		s.own = src.own
		src.data = nil
		src.own = ownNone
	case Borrow:
		s.data = src.data
		s.own = ownBorrow
	default:
		cp := make([]byte, len(src.data))
		copy(cp, src.data)
		s.data = cp
		s.own = ownOwn
	}

	s.schemaID = id
	s.schema = resolved
	s.schemaResolved = true
	s.purpose = src.purpose
	return nil
}

// grow replaces data with a freshly allocated copy extended by extra zero
// bytes at the end, returning the new slice. Used by addSchema to extend
// section 0 and the string section regardless of their current ownership:
// unlike the C original's realloc-in-place-when-OWN optimization, Go has no
// realloc equivalent for slices, so growth always allocates; the observable
// result — a bigger owned payload — is identical.
func (s *Section) grow(extra int) []byte {
	newData := make([]byte, len(s.data)+extra)
	copy(newData, s.data)
	s.data = newData
	s.own = ownOwn
	return newData
}
