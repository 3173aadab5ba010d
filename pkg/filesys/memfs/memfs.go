// Package memfs provides an in-memory flat file system.
package memfs

import (
	"errors"
	"io"
	"sync"

	"nachos/pkg/filesys"
)

// ErrInvalidSeek is returned for a bad whence or a negative position.
var ErrInvalidSeek = errors.New("memfs: invalid seek")

// node holds the contents of one file. Handles opened on the same name
// share the node; removing the name detaches it from the namespace only.
type node struct {
	mu   sync.RWMutex
	data []byte
}

// FS is an in-memory file system.
type FS struct {
	mu    sync.RWMutex
	files map[string]*node
}

// New creates an empty file system.
func New() *FS {
	return &FS{files: make(map[string]*node)}
}

// Open implements filesys.FileSystem.
func (fs *FS) Open(name string, create bool) (filesys.OpenFile, error) {
	if err := filesys.ValidName(name); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.files[name]
	switch {
	case !ok && !create:
		return nil, filesys.ErrNotFound
	case !ok:
		n = &node{}
		fs.files[name] = n
	case create:
		n.mu.Lock()
		n.data = nil
		n.mu.Unlock()
	}

	return &file{name: name, node: n}, nil
}

// Remove implements filesys.FileSystem.
func (fs *FS) Remove(name string) error {
	if err := filesys.ValidName(name); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.files[name]; !ok {
		return filesys.ErrNotFound
	}
	delete(fs.files, name)
	return nil
}

// WriteFile stores data under name, replacing any previous contents.
func (fs *FS) WriteFile(name string, data []byte) error {
	f, err := fs.Open(name, true)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// ReadFile returns a copy of the contents of name.
func (fs *FS) ReadFile(name string) ([]byte, error) {
	fs.mu.RLock()
	n, ok := fs.files[name]
	fs.mu.RUnlock()
	if !ok {
		return nil, filesys.ErrNotFound
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]byte(nil), n.data...), nil
}

// Exists reports whether name is present.
func (fs *FS) Exists(name string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.files[name]
	return ok
}

// file is an open handle on a node.
type file struct {
	mu     sync.Mutex
	name   string
	node   *node
	offset int64
	closed bool
}

func (f *file) Name() string {
	return f.name
}

func (f *file) Length() int64 {
	f.node.mu.RLock()
	defer f.node.mu.RUnlock()
	return int64(len(f.node.data))
}

func (f *file) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, filesys.ErrClosed
	}
	n, err := f.readAt(b, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *file) ReadAt(b []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, filesys.ErrClosed
	}
	n, err := f.readAt(b, off)
	if err == nil && n < len(b) {
		err = io.EOF
	}
	return n, err
}

func (f *file) readAt(b []byte, off int64) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	f.node.mu.RLock()
	defer f.node.mu.RUnlock()

	if off >= int64(len(f.node.data)) {
		return 0, io.EOF
	}
	return copy(b, f.node.data[off:]), nil
}

func (f *file) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, filesys.ErrClosed
	}

	f.node.mu.Lock()
	defer f.node.mu.Unlock()

	end := f.offset + int64(len(b))
	if end > int64(len(f.node.data)) {
		grown := make([]byte, end)
		copy(grown, f.node.data)
		f.node.data = grown
	}
	copy(f.node.data[f.offset:], b)
	f.offset = end
	return len(b), nil
}

func (f *file) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, filesys.ErrClosed
	}

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.offset + offset
	case io.SeekEnd:
		next = f.Length() + offset
	default:
		return 0, ErrInvalidSeek
	}
	if next < 0 {
		return 0, ErrInvalidSeek
	}
	f.offset = next
	return next, nil
}

func (f *file) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return filesys.ErrClosed
	}
	f.closed = true
	return nil
}
