// Package coff reads and writes the executable image format loaded into
// user processes.
//
// An image starts with a fixed prefix (magic "NCOF", version, entry point,
// section count and total header size), followed by one header per
// section and then the raw section contents. All header fields are
// big-endian. Sections occupy whole pages in the virtual address space;
// bytes past the stored contents of a section are zero-filled when loaded.
package coff

import (
	"errors"
	"fmt"
	"io"
)

// Magic identifies an image.
var Magic = [4]byte{'N', 'C', 'O', 'F'}

// Version is the only image version understood by this package.
const Version uint8 = 1

const (
	prefixSize    = 4 + 1 + 4 + 2 + 4
	maxHeaderSize = 64 * 1024

	flagReadOnly uint8 = 1 << 0
)

var (
	// ErrBadMagic is returned when the image does not start with Magic.
	ErrBadMagic = errors.New("coff: bad magic")
	// ErrBadVersion is returned for unknown image versions.
	ErrBadVersion = errors.New("coff: unsupported version")
	// ErrTruncated is returned when the image ends early.
	ErrTruncated = errors.New("coff: truncated image")
	// ErrBadSection is returned for inconsistent section headers.
	ErrBadSection = errors.New("coff: bad section header")
	// ErrBadPage is returned when LoadPage is called with a bad page.
	ErrBadPage = errors.New("coff: page out of range")
)

// Source is what an image is read from.
type Source interface {
	io.ReaderAt
	io.Closer
}

// File is a parsed executable image.
type File struct {
	src      Source
	pageSize int
	entry    int32
	sections []*Section
}

// Section is one contiguous run of pages in the image.
type Section struct {
	file     *File
	name     string
	firstVPN int
	numPages int
	size     int
	offset   int64
	readOnly bool
}

// New parses the image headers from src. Section contents are read lazily
// by LoadPage. The caller keeps ownership of src until Close is called on
// the returned File.
func New(src Source, pageSize int) (*File, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("coff: invalid page size %d", pageSize)
	}

	prefix := make([]byte, prefixSize)
	if err := readFull(src, prefix, 0); err != nil {
		return nil, err
	}

	c := newCodec(prefix)
	magic, _ := c.readMagic()
	if magic != Magic {
		return nil, ErrBadMagic
	}
	version, _ := c.readUint8()
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}
	entry, _ := c.readUint32()
	count, _ := c.readUint16()
	headerSize, _ := c.readUint32()
	if headerSize < prefixSize || headerSize > maxHeaderSize {
		return nil, fmt.Errorf("%w: header size %d", ErrBadSection, headerSize)
	}

	header := make([]byte, int(headerSize)-prefixSize)
	if err := readFull(src, header, prefixSize); err != nil {
		return nil, err
	}

	f := &File{
		src:      src,
		pageSize: pageSize,
		entry:    int32(entry),
		sections: make([]*Section, 0, count),
	}

	c = newCodec(header)
	for i := 0; i < int(count); i++ {
		s, err := f.decodeSection(c)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		f.sections = append(f.sections, s)
	}

	return f, nil
}

func (f *File) decodeSection(c *codec) (*Section, error) {
	name, err := c.readString()
	if err != nil {
		return nil, ErrTruncated
	}
	firstVPN, err := c.readUint32()
	if err != nil {
		return nil, ErrTruncated
	}
	numPages, err := c.readUint32()
	if err != nil {
		return nil, ErrTruncated
	}
	size, err := c.readUint32()
	if err != nil {
		return nil, ErrTruncated
	}
	flags, err := c.readUint8()
	if err != nil {
		return nil, ErrTruncated
	}
	offset, err := c.readUint32()
	if err != nil {
		return nil, ErrTruncated
	}

	if uint64(size) > uint64(numPages)*uint64(f.pageSize) {
		return nil, fmt.Errorf("%w: %s holds %d bytes in %d pages", ErrBadSection, name, size, numPages)
	}

	return &Section{
		file:     f,
		name:     name,
		firstVPN: int(firstVPN),
		numPages: int(numPages),
		size:     int(size),
		offset:   int64(offset),
		readOnly: flags&flagReadOnly != 0,
	}, nil
}

// EntryPoint returns the initial program counter.
func (f *File) EntryPoint() int32 {
	return f.entry
}

// NumSections returns the number of sections.
func (f *File) NumSections() int {
	return len(f.sections)
}

// Section returns section i.
func (f *File) Section(i int) *Section {
	return f.sections[i]
}

// Close releases the underlying source.
func (f *File) Close() error {
	return f.src.Close()
}

// Name returns the section name, such as ".text".
func (s *Section) Name() string { return s.name }

// FirstVPN returns the first virtual page the section occupies.
func (s *Section) FirstVPN() int { return s.firstVPN }

// Length returns the number of pages in the section.
func (s *Section) Length() int { return s.numPages }

// IsReadOnly reports whether the section must not be written by user code.
func (s *Section) IsReadOnly() bool { return s.readOnly }

// LoadPage fills dst with page spn of the section. dst must be exactly one
// page long; bytes past the stored contents are zeroed.
func (s *Section) LoadPage(spn int, dst []byte) error {
	pageSize := s.file.pageSize
	if spn < 0 || spn >= s.numPages {
		return fmt.Errorf("%w: %s page %d of %d", ErrBadPage, s.name, spn, s.numPages)
	}
	if len(dst) != pageSize {
		return fmt.Errorf("%w: destination is %d bytes, want %d", ErrBadPage, len(dst), pageSize)
	}

	start := spn * pageSize
	n := 0
	if start < s.size {
		n = min(pageSize, s.size-start)
		if err := readFull(s.file.src, dst[:n], s.offset+int64(start)); err != nil {
			return err
		}
	}
	clear(dst[n:])
	return nil
}

func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return ErrTruncated
	}
	return err
}
