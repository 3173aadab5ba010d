package filesys

import (
	"errors"
	"io"
	"strings"
)

// MaxNameLength is the longest file name accepted by ValidName.
const MaxNameLength = 256

var (
	// ErrNotFound is returned when opening or removing a missing file.
	ErrNotFound = errors.New("filesys: file not found")
	// ErrClosed is returned for operations on a closed file.
	ErrClosed = errors.New("filesys: file is closed")
	// ErrInvalidName is returned for empty, oversized or path-like names.
	ErrInvalidName = errors.New("filesys: invalid file name")
)

// FileSystem is the backing store used by the kernel.
type FileSystem interface {
	// Open opens the named file for reading and writing. When create is
	// true a missing file is created and an existing file is truncated.
	// When create is false a missing file yields ErrNotFound.
	Open(name string, create bool) (OpenFile, error)

	// Remove deletes the named file. Handles already open on it stay
	// usable until closed.
	Remove(name string) error
}

// OpenFile is an open handle with its own file position.
type OpenFile interface {
	io.Reader
	io.Writer
	io.ReaderAt
	io.Seeker
	io.Closer

	// Name returns the name the file was opened with.
	Name() string

	// Length returns the current size of the file in bytes.
	Length() int64
}

// ValidName checks that name can be used in the flat namespace.
func ValidName(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return ErrInvalidName
	}
	return nil
}
