package crab

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/google/renameio"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// File is a handle onto a CRAB container: an ordered sequence of sections,
// backed either by a memory-mapped disk image (after Open) or entirely by
// heap-owned sections (after Open with FlagNew, until a Save with
// FlagReopen maps the written file). A
// File is not safe for concurrent use.
type File struct {
	filename string
	flags    OpenFlag

	mapped   []byte
	sections []*Section

	lastErr *Error
}

// Err returns the most recently recorded failure on f, or nil if no
// operation on f has failed yet. A later successful operation does not
// clear it, so callers should check this if, and only if, some other
// operation on f returned a non-nil error.
func (f *File) Err() *Error {
	return f.lastErr
}

// fail records {tag, errno} as f's last error, prints a diagnostic to
// stderr if FlagPError is set, and returns the *Error for convenience at
// call sites ("return f.fail(...)").
func (f *File) fail(tag string, errno syscall.Errno, cause error) error {
	e := &Error{Tag: tag, Errno: errno}
	if cause != nil {
		e.cause = xerrors.Errorf("%s: %w", tag, cause)
	}
	f.lastErr = e
	if f.flags&FlagPError != 0 {
		fmt.Fprintln(os.Stderr, perror(tag, errno))
	}
	return e
}

// errnoOf extracts the POSIX errno underlying a stdlib I/O error, falling
// back to EIO for errors that don't carry one (which, for the os/syscall
// APIs this package uses, should not happen in practice).
func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}

// Open opens a CRAB file. With FlagNew, a new, empty file is synthesised in
// memory and filename is remembered for the eventual Save; no disk I/O
// happens until then. Otherwise filename is mapped from disk (read-only,
// or read-write if FlagWrite is set) and validated.
//
// On failure, Open records the error on the returned handle. If FlagError
// is set, a non-nil *File is always returned so the caller can retrieve the
// error via Err; otherwise Open returns (nil, err).
func Open(filename string, flags OpenFlag) (*File, error) {
	f := &File{filename: filename, flags: flags &^ FlagNew}

	var err error
	if flags&FlagNew != 0 {
		err = f.createNew()
	} else {
		err = f.openFull()
	}
	if err != nil {
		if flags&FlagError != 0 {
			return f, err
		}
		f.Close()
		return nil, err
	}
	return f, nil
}

// createNew synthesises the two sections every empty CRAB file needs:
// section 0 (the schema list, with a single entry for the built-in CRAB
// schema) and section 1 (the string section holding that schema's URL).
func (f *File) createNew() error {
	stringData := make([]byte, len(CrabSchemaURL)+1)
	copy(stringData, CrabSchemaURL)
	stringSection := &Section{
		file: f, number: 1,
		purpose: PurposeSupplementary,
		data:    stringData, own: ownOwn,
	}

	schemaData := make([]byte, schemaHeaderFixedSize+schemaEntrySize)
	copy(schemaData[:schemaHeaderFixedSize], encodeSchemaDataHeader(schemaDataHeader{
		StringSection: 1,
		NumSchemas:    1,
	}))
	copy(schemaData[schemaHeaderFixedSize:], encodeSchemaEntry(schemaEntry{
		URL: packURL(0, uint32(len(CrabSchemaURL))),
	}))
	schemaSection := &Section{
		file: f, number: 0,
		purpose: PurposeSchema,
		data:    schemaData, own: ownOwn,
	}

	f.sections = []*Section{schemaSection, stringSection}
	return resolve(f)
}

// mapExisting opens, stats, and memory-maps f.filename, validating the
// file header and section-info table (but not yet constructing Section
// objects, since the caller differs between a fresh open and a
// reopen-after-save). On any format violation, the mapping (if created) is
// released before returning.
func (f *File) mapExisting() (mapped []byte, entries []sectionInfoEntry, err error) {
	openFlag := os.O_RDONLY
	if f.flags&FlagWrite != 0 {
		openFlag = os.O_RDWR
	}
	fh, oerr := os.OpenFile(f.filename, openFlag, 0)
	if oerr != nil {
		return nil, nil, f.fail("open", errnoOf(oerr), oerr)
	}
	defer fh.Close()

	st, serr := fh.Stat()
	if serr != nil {
		return nil, nil, f.fail("fstat", errnoOf(serr), serr)
	}
	size := st.Size()
	if size < headerFixedSize+sectionInfoSize {
		return nil, nil, f.fail("<file format>", syscall.EINVAL, nil)
	}

	prot := unix.PROT_READ
	if f.flags&FlagWrite != 0 {
		prot |= unix.PROT_WRITE
	}
	mapped, merr := unix.Mmap(int(fh.Fd()), 0, int(size), prot, unix.MAP_PRIVATE)
	if merr != nil {
		return nil, nil, f.fail("mmap", errnoOf(merr), merr)
	}

	hdr, ok := decodeFileHeader(mapped)
	if !ok || hdr.Magic != magic || hdr.Size != uint64(size) || hdr.NumSections < 1 {
		unix.Munmap(mapped)
		return nil, nil, f.fail("<file format>", syscall.EINVAL, nil)
	}
	if uint64(size) < uint64(headerFixedSize)+uint64(hdr.NumSections)*sectionInfoSize {
		unix.Munmap(mapped)
		return nil, nil, f.fail("<file format>", syscall.EINVAL, nil)
	}

	entries = make([]sectionInfoEntry, hdr.NumSections)
	for i := range entries {
		off := headerFixedSize + i*sectionInfoSize
		e := decodeSectionInfo(mapped[off:])
		end := e.Offset + uint64(e.Size)
		if end < e.Offset || end > uint64(size) {
			unix.Munmap(mapped)
			return nil, nil, f.fail("<file format>", syscall.EINVAL, nil)
		}
		entries[i] = e
	}
	return mapped, entries, nil
}

// openFull is the normal Open path: map the file, build a fresh Section
// array, and resolve schemas.
func (f *File) openFull() error {
	mapped, entries, err := f.mapExisting()
	if err != nil {
		return err
	}

	sections := make([]*Section, len(entries))
	for i, e := range entries {
		end := e.Offset + uint64(e.Size)
		sections[i] = &Section{
			file: f, number: uint32(i),
			schemaID: e.SchemaID, purpose: Purpose(e.Purpose),
			data: mapped[e.Offset:end:end], own: ownBorrow,
		}
	}
	if sections[0].purpose != PurposeSchema {
		unix.Munmap(mapped)
		return f.fail("<file format>", syscall.EINVAL, nil)
	}
	schemaHdr, ok := decodeSchemaDataHeader(sections[0].data)
	if !ok || int(schemaHdr.StringSection) >= len(sections) {
		unix.Munmap(mapped)
		return f.fail("<file format>", syscall.EINVAL, nil)
	}

	f.mapped = mapped
	f.sections = sections
	return resolve(f)
}

// reopenAfterSave re-maps the just-written file and rebinds the existing
// Section objects' payloads to borrow from the new mapping, preserving
// their identities and indices. A section-count mismatch against the
// in-memory state is a programming-invariant violation, not a recoverable
// error, and panics.
func (f *File) reopenAfterSave() error {
	mapped, entries, err := f.mapExisting()
	if err != nil {
		return err
	}
	if len(entries) != len(f.sections) {
		panic("crab: reopen observed a different section count than before save")
	}
	for i, e := range entries {
		end := e.Offset + uint64(e.Size)
		s := f.sections[i]
		s.schemaID = e.SchemaID
		s.purpose = Purpose(e.Purpose)
		s.data = mapped[e.Offset:end:end]
		s.own = ownBorrow
	}
	f.mapped = mapped
	return resolve(f)
}

// releaseMapping unmaps f's current mapping, if any. A munmap failure is a
// programming-invariant violation (the mapping or size was corrupted
// in-process) and panics, matching spec.md §7's treatment of close-syscall
// failures.
func (f *File) releaseMapping() {
	if f.mapped == nil {
		return
	}
	if err := unix.Munmap(f.mapped); err != nil {
		panic("crab: munmap: " + err.Error())
	}
	f.mapped = nil
}

// NumSections returns the current number of sections in f.
func (f *File) NumSections() uint32 {
	return uint32(len(f.sections))
}

// Section returns the section at index i, or fails with <section index> if
// i is out of range.
func (f *File) Section(i uint32) (*Section, error) {
	if i >= uint32(len(f.sections)) {
		return nil, f.fail("<section index>", syscall.EINVAL, nil)
	}
	return f.sections[i], nil
}

// AddSection appends a new, empty section, initially assigned the built-in
// CRAB schema and PurposeError. Callers will usually want to call
// SetSchemaAndPurpose and SetData on the result.
func (f *File) AddSection() (*Section, error) {
	if len(f.sections) >= 1<<32-1 {
		return nil, f.fail("<num sections>", syscall.EOVERFLOW, nil)
	}
	id, url, err := addSchema(f, CrabSchemaURL)
	if err != nil {
		return nil, err
	}
	s := &Section{
		file: f, number: uint32(len(f.sections)),
		schemaID: id, schema: url, schemaResolved: true,
		purpose: PurposeError,
	}
	f.sections = append(f.sections, s)
	return s, nil
}

// Save computes the on-disk layout of f's current sections and writes it
// to a fresh temporary file in filename's directory, then atomically
// renames it over filename. The rename is the atomicity point: any opener
// sees either the old file or the new one, never a partial write.
//
// With FlagReopen, Save additionally releases all owned section payloads
// and re-maps the freshly written file, so sections go back to borrowing
// from the mapping (saving heap memory) while keeping their File and
// Section identities stable.
func (f *File) Save(flags CloseFlag) error {
	lay := computeLayout(f.sections)

	tmp, err := renameio.TempFile("", f.filename)
	if err != nil {
		return f.fail("fopen", errnoOf(err), err)
	}
	defer tmp.Cleanup()

	hdr := fileHeader{Magic: magic, Size: lay.totalSize, NumSections: uint32(len(f.sections))}
	if err := binary.Write(tmp, binary.BigEndian, hdr); err != nil {
		return f.fail("fwrite", errnoOf(err), err)
	}
	for i, s := range f.sections {
		entry := sectionInfoEntry{
			Offset: lay.sectionOffsets[i], Size: uint32(len(s.data)),
			SchemaID: s.schemaID, Purpose: uint16(s.purpose),
		}
		if err := binary.Write(tmp, binary.BigEndian, entry); err != nil {
			return f.fail("fwrite", errnoOf(err), err)
		}
	}
	var zeros [8]byte
	for _, s := range f.sections {
		if len(s.data) > 0 {
			if _, err := tmp.Write(s.data); err != nil {
				return f.fail("fwrite", errnoOf(err), err)
			}
		}
		if pad := padLen(len(s.data)); pad > 0 {
			if _, err := tmp.Write(zeros[:pad]); err != nil {
				return f.fail("fwrite", errnoOf(err), err)
			}
		}
	}

	if err := tmp.CloseAtomicallyReplace(); err != nil {
		return f.fail("rename", errnoOf(err), err)
	}

	if flags&FlagReopen != 0 {
		f.releaseMapping()
		if err := f.reopenAfterSave(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every owned section payload, unmaps the file, and clears
// f. Close never saves; unsaved changes are lost.
func (f *File) Close() error {
	f.releaseMapping()
	for _, s := range f.sections {
		s.data = nil
		s.own = ownNone
	}
	f.sections = nil
	return nil
}
