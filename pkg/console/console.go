// Package console provides the character streams behind descriptors 0 and 1
// of every user process.
//
// A Console hands out a fresh reader or writer for each syscall. Closing
// the returned stream never closes the device underneath it.
package console

import (
	"io"
	"sync"
)

// Console is the device behind standard input and output.
type Console interface {
	// OpenForReading returns a stream over console input.
	OpenForReading() io.ReadCloser
	// OpenForWriting returns a stream over console output.
	OpenForWriting() io.WriteCloser
}

// Stream is a console over an arbitrary reader and writer.
type Stream struct {
	mu  sync.Mutex
	in  io.Reader
	out io.Writer
}

// NewStream creates a console reading from in and writing to out. Either
// may be nil, in which case reads return io.EOF and writes are discarded.
func NewStream(in io.Reader, out io.Writer) *Stream {
	if in == nil {
		in = eofReader{}
	}
	if out == nil {
		out = io.Discard
	}
	return &Stream{in: in, out: out}
}

// OpenForReading implements Console.
func (s *Stream) OpenForReading() io.ReadCloser {
	return &streamReader{s: s}
}

// OpenForWriting implements Console.
func (s *Stream) OpenForWriting() io.WriteCloser {
	return &streamWriter{s: s}
}

type streamReader struct {
	s      *Stream
	closed bool
}

func (r *streamReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, io.ErrClosedPipe
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.in.Read(p)
}

func (r *streamReader) Close() error {
	r.closed = true
	return nil
}

type streamWriter struct {
	s      *Stream
	closed bool
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return w.s.out.Write(p)
}

func (w *streamWriter) Close() error {
	w.closed = true
	return nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
