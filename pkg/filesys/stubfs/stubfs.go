// Package stubfs provides a flat file system backed by a host directory.
// Every name maps to a regular file directly inside the root directory.
package stubfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"nachos/pkg/filesys"
)

// FS is a host-directory file system.
type FS struct {
	root string
}

// New creates a file system rooted at dir.
func New(dir string) *FS {
	return &FS{root: filepath.Clean(dir)}
}

// Root returns the host directory.
func (s *FS) Root() string {
	return s.root
}

// Open implements filesys.FileSystem.
func (s *FS) Open(name string, create bool) (filesys.OpenFile, error) {
	if err := filesys.ValidName(name); err != nil {
		return nil, err
	}

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(s.fullPath(name), flags, 0o666)
	if err != nil {
		return nil, mapError(err)
	}
	return &hostFile{File: f, name: name}, nil
}

// Remove implements filesys.FileSystem.
func (s *FS) Remove(name string) error {
	if err := filesys.ValidName(name); err != nil {
		return err
	}
	return mapError(os.Remove(s.fullPath(name)))
}

func (s *FS) fullPath(name string) string {
	return filepath.Join(s.root, name)
}

func mapError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return filesys.ErrNotFound
	}
	return err
}

// hostFile adapts *os.File to filesys.OpenFile.
type hostFile struct {
	*os.File
	name string
}

func (f *hostFile) Name() string {
	return f.name
}

func (f *hostFile) Length() int64 {
	info, err := f.File.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

func (f *hostFile) Close() error {
	if err := f.File.Close(); err != nil {
		if errors.Is(err, os.ErrClosed) {
			return filesys.ErrClosed
		}
		return err
	}
	return nil
}
