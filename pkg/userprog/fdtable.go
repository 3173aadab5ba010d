package userprog

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/hashicorp/go-hclog"

	"nachos/pkg/console"
	"nachos/pkg/filesys"
)

// Reserved descriptors.
const (
	StdinFD  = 0
	StdoutFD = 1

	firstFileFD = 2
)

// DefaultMaxFiles is the descriptor table capacity, console slots included.
const DefaultMaxFiles = 16

// FileTable is a process's descriptor table. Slots 0 and 1 are the console
// and never hold a file; files occupy the remaining slots, always taking
// the lowest free one.
type FileTable struct {
	fs      filesys.FileSystem
	console console.Console
	logger  hclog.Logger

	slots []filesys.OpenFile
	names []string
	// free holds the empty file slots in ascending order.
	free []int
}

// NewFileTable creates a table with capacity slots backed by fs and con.
func NewFileTable(fs filesys.FileSystem, con console.Console, capacity int, logger hclog.Logger) *FileTable {
	if capacity <= firstFileFD {
		panic(fmt.Sprintf("userprog: file table capacity %d", capacity))
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	t := &FileTable{
		fs:      fs,
		console: con,
		logger:  logger,
		slots:   make([]filesys.OpenFile, capacity),
		names:   make([]string, capacity),
		free:    make([]int, 0, capacity-firstFileFD),
	}
	for fd := firstFileFD; fd < capacity; fd++ {
		t.free = append(t.free, fd)
	}
	return t
}

// Capacity returns the number of slots, console slots included.
func (t *FileTable) Capacity() int {
	return len(t.slots)
}

// Len returns the number of open files.
func (t *FileTable) Len() int {
	return len(t.slots) - firstFileFD - len(t.free)
}

// Lookup returns the descriptor holding name.
func (t *FileTable) Lookup(name string) (int, bool) {
	for fd := firstFileFD; fd < len(t.slots); fd++ {
		if t.slots[fd] != nil && t.names[fd] == name {
			return fd, true
		}
	}
	return -1, false
}

// Names returns the open files by descriptor.
func (t *FileTable) Names() map[int]string {
	out := make(map[int]string, t.Len())
	for fd := firstFileFD; fd < len(t.slots); fd++ {
		if t.slots[fd] != nil {
			out[fd] = t.names[fd]
		}
	}
	return out
}

// Create opens name for writing, creating it if needed. A name that is
// already open returns its existing descriptor.
func (t *FileTable) Create(name string) (int, error) {
	return t.open(name, true)
}

// Open opens an existing file. A name that is already open returns its
// existing descriptor.
func (t *FileTable) Open(name string) (int, error) {
	return t.open(name, false)
}

func (t *FileTable) open(name string, create bool) (int, error) {
	if fd, ok := t.Lookup(name); ok {
		return fd, nil
	}
	if len(t.free) == 0 {
		return -1, ErrTableFull
	}

	f, err := t.fs.Open(name, create)
	if err != nil {
		if errors.Is(err, filesys.ErrNotFound) {
			return -1, fmt.Errorf("open %q: %w", name, ErrFileNotFound)
		}
		return -1, fmt.Errorf("open %q: %w", name, err)
	}

	fd := t.free[0]
	t.free = t.free[1:]
	t.slots[fd] = f
	t.names[fd] = name

	t.logger.Debug("opened file", "fd", fd, "name", name, "create", create)
	return fd, nil
}

// file returns the open file in slot fd.
func (t *FileTable) file(fd int) (filesys.OpenFile, error) {
	if fd < firstFileFD || fd >= len(t.slots) {
		return nil, fmt.Errorf("fd %d: %w", fd, ErrBadDescriptor)
	}
	if t.slots[fd] == nil {
		return nil, fmt.Errorf("fd %d: %w", fd, ErrNotOpen)
	}
	return t.slots[fd], nil
}

// checkReadable reports whether fd can be read from.
func (t *FileTable) checkReadable(fd int) error {
	if fd == StdinFD {
		return nil
	}
	_, err := t.file(fd)
	return err
}

// checkWritable reports whether fd can be written to.
func (t *FileTable) checkWritable(fd int) error {
	if fd == StdoutFD {
		return nil
	}
	_, err := t.file(fd)
	return err
}

// Read reads into buf from fd. Descriptor 0 reads the console. Reading
// nothing, end of file included, is reported as ErrNoData.
func (t *FileTable) Read(fd int, buf []byte) (int, error) {
	var (
		n   int
		err error
	)
	if fd == StdinFD {
		r := t.console.OpenForReading()
		n, err = r.Read(buf)
		r.Close()
	} else {
		f, ferr := t.file(fd)
		if ferr != nil {
			return -1, ferr
		}
		n, err = f.Read(buf)
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return -1, fmt.Errorf("read fd %d: %w", fd, err)
	}
	if n <= 0 {
		return -1, fmt.Errorf("read fd %d: %w", fd, ErrNoData)
	}
	return n, nil
}

// Write writes data to fd. Descriptor 1 writes the console.
func (t *FileTable) Write(fd int, data []byte) (int, error) {
	if fd == StdoutFD {
		w := t.console.OpenForWriting()
		defer w.Close()
		n, err := w.Write(data)
		if err != nil {
			return -1, fmt.Errorf("write fd %d: %w", fd, err)
		}
		return n, nil
	}

	f, err := t.file(fd)
	if err != nil {
		return -1, err
	}
	n, err := f.Write(data)
	if err != nil {
		return -1, fmt.Errorf("write fd %d: %w", fd, err)
	}
	if n <= 0 {
		return -1, fmt.Errorf("write fd %d: %w", fd, ErrNoData)
	}
	return n, nil
}

// Close closes fd and frees its slot.
func (t *FileTable) Close(fd int) error {
	f, err := t.file(fd)
	if err != nil {
		return err
	}
	t.release(fd)

	if err := f.Close(); err != nil {
		t.logger.Warn("close failed", "fd", fd, "error", err)
	}
	return nil
}

// Unlink closes any descriptor bound to name and removes it from the file
// system. The returned error is the file system's answer; the unlink
// syscall succeeds regardless.
func (t *FileTable) Unlink(name string) error {
	if fd, ok := t.Lookup(name); ok {
		f := t.slots[fd]
		t.release(fd)
		if err := f.Close(); err != nil {
			t.logger.Debug("close before unlink failed", "fd", fd, "error", err)
		}
	}

	if err := t.fs.Remove(name); err != nil {
		t.logger.Debug("remove failed", "name", name, "error", err)
		return fmt.Errorf("unlink %q: %w", name, err)
	}
	return nil
}

// release empties slot fd and returns it to the free list.
func (t *FileTable) release(fd int) {
	t.slots[fd] = nil
	t.names[fd] = ""
	i, _ := slices.BinarySearch(t.free, fd)
	t.free = slices.Insert(t.free, i, fd)
}
