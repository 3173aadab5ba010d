package coff

import (
	"bytes"
	"fmt"
	"io"
)

// Writer assembles an image in memory.
type Writer struct {
	pageSize int
	entry    int32
	sections []writerSection
}

type writerSection struct {
	name     string
	firstVPN int
	numPages int
	data     []byte
	readOnly bool
}

// NewWriter creates a writer for images with the given page size.
func NewWriter(pageSize int) *Writer {
	return &Writer{pageSize: pageSize}
}

// SetEntryPoint sets the initial program counter.
func (w *Writer) SetEntryPoint(pc int32) {
	w.entry = pc
}

// AddSection appends a section placed right after the previous one.
// numPages may exceed the pages needed for data to reserve zeroed space;
// zero means just enough pages for data (at least one).
func (w *Writer) AddSection(name string, data []byte, numPages int, readOnly bool) {
	next := 0
	if n := len(w.sections); n > 0 {
		last := w.sections[n-1]
		next = last.firstVPN + last.numPages
	}
	w.AddSectionAt(name, next, data, numPages, readOnly)
}

// AddSectionAt appends a section starting at an explicit virtual page.
// It lets callers build fragmented images.
func (w *Writer) AddSectionAt(name string, firstVPN int, data []byte, numPages int, readOnly bool) {
	if numPages == 0 {
		numPages = max(1, (len(data)+w.pageSize-1)/w.pageSize)
	}
	w.sections = append(w.sections, writerSection{
		name:     name,
		firstVPN: firstVPN,
		numPages: numPages,
		data:     data,
		readOnly: readOnly,
	})
}

// Bytes encodes the image.
func (w *Writer) Bytes() ([]byte, error) {
	headerSize := prefixSize
	for _, s := range w.sections {
		if len(s.data) > s.numPages*w.pageSize {
			return nil, fmt.Errorf("%w: %s holds %d bytes in %d pages", ErrBadSection, s.name, len(s.data), s.numPages)
		}
		headerSize += len(s.name) + 1 + 4 + 4 + 4 + 1 + 4
	}
	if headerSize > maxHeaderSize {
		return nil, fmt.Errorf("%w: header size %d", ErrBadSection, headerSize)
	}

	header := make([]byte, headerSize)
	c := newCodec(header)
	_ = c.writeMagic(Magic)
	_ = c.writeUint8(Version)
	_ = c.writeUint32(uint32(w.entry))
	_ = c.writeUint16(uint16(len(w.sections)))
	_ = c.writeUint32(uint32(headerSize))

	offset := headerSize
	for _, s := range w.sections {
		var flags uint8
		if s.readOnly {
			flags |= flagReadOnly
		}
		if err := c.writeString(s.name); err != nil {
			return nil, err
		}
		_ = c.writeUint32(uint32(s.firstVPN))
		_ = c.writeUint32(uint32(s.numPages))
		_ = c.writeUint32(uint32(len(s.data)))
		_ = c.writeUint8(flags)
		_ = c.writeUint32(uint32(offset))
		offset += len(s.data)
	}

	var buf bytes.Buffer
	buf.Grow(offset)
	buf.Write(header)
	for _, s := range w.sections {
		buf.Write(s.data)
	}
	return buf.Bytes(), nil
}

// WriteTo writes the encoded image to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	b, err := w.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := out.Write(b)
	return int64(n), err
}
