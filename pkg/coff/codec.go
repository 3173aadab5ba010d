package coff

import (
	"encoding/binary"
	"errors"
)

// errShortBuffer is returned by the codec when the header buffer runs out.
var errShortBuffer = errors.New("coff: header buffer exhausted")

// codec reads and writes big-endian header fields over a fixed buffer.
type codec struct {
	buf []byte
	pos int
}

func newCodec(buf []byte) *codec {
	return &codec{buf: buf}
}

func (c *codec) remaining() int {
	return len(c.buf) - c.pos
}

func (c *codec) readUint8() (uint8, error) {
	if c.remaining() < 1 {
		return 0, errShortBuffer
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *codec) writeUint8(v uint8) error {
	if c.remaining() < 1 {
		return errShortBuffer
	}
	c.buf[c.pos] = v
	c.pos++
	return nil
}

func (c *codec) readUint16() (uint16, error) {
	if c.remaining() < 2 {
		return 0, errShortBuffer
	}
	v := binary.BigEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *codec) writeUint16(v uint16) error {
	if c.remaining() < 2 {
		return errShortBuffer
	}
	binary.BigEndian.PutUint16(c.buf[c.pos:], v)
	c.pos += 2
	return nil
}

func (c *codec) readUint32() (uint32, error) {
	if c.remaining() < 4 {
		return 0, errShortBuffer
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *codec) writeUint32(v uint32) error {
	if c.remaining() < 4 {
		return errShortBuffer
	}
	binary.BigEndian.PutUint32(c.buf[c.pos:], v)
	c.pos += 4
	return nil
}

func (c *codec) readMagic() ([4]byte, error) {
	var m [4]byte
	if c.remaining() < len(m) {
		return m, errShortBuffer
	}
	copy(m[:], c.buf[c.pos:])
	c.pos += len(m)
	return m, nil
}

func (c *codec) writeMagic(m [4]byte) error {
	if c.remaining() < len(m) {
		return errShortBuffer
	}
	copy(c.buf[c.pos:], m[:])
	c.pos += len(m)
	return nil
}

// readString reads a NUL-terminated string.
func (c *codec) readString() (string, error) {
	start := c.pos
	for c.pos < len(c.buf) && c.buf[c.pos] != 0 {
		c.pos++
	}
	if c.pos >= len(c.buf) {
		c.pos = start
		return "", errShortBuffer
	}
	c.pos++
	return string(c.buf[start : c.pos-1]), nil
}

// writeString writes s followed by a NUL byte.
func (c *codec) writeString(s string) error {
	if c.remaining() < len(s)+1 {
		return errShortBuffer
	}
	copy(c.buf[c.pos:], s)
	c.buf[c.pos+len(s)] = 0
	c.pos += len(s) + 1
	return nil
}
