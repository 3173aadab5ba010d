package console

import (
	"bytes"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/mattn/go-tty"
)

// TTY is a console attached to the controlling terminal. Input is read one
// key at a time in raw mode and echoed back; output newlines are expanded
// to CRLF.
type TTY struct {
	mu      sync.Mutex
	tty     *tty.TTY
	pending []byte
}

// OpenTTY opens the controlling terminal.
func OpenTTY() (*TTY, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	return &TTY{tty: t}, nil
}

// Close restores the terminal.
func (c *TTY) Close() error {
	return c.tty.Close()
}

// OpenForReading implements Console.
func (c *TTY) OpenForReading() io.ReadCloser {
	return io.NopCloser(ttyReader{c})
}

// OpenForWriting implements Console.
func (c *TTY) OpenForWriting() io.WriteCloser {
	return nopWriteCloser{ttyWriter{c}}
}

type ttyReader struct{ c *TTY }

func (r ttyReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		ch, err := c.tty.ReadRune()
		if err != nil {
			return 0, err
		}
		if ch == '\r' {
			ch = '\n'
		}
		c.pending = utf8.AppendRune(c.pending, ch)
		c.echo(c.pending)
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *TTY) echo(b []byte) {
	_, _ = c.tty.Output().Write(crlf(b))
}

type ttyWriter struct{ c *TTY }

func (w ttyWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()

	if _, err := w.c.tty.Output().Write(crlf(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func crlf(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte("\n"), []byte("\r\n"))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
