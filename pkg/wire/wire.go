// Package wire implements the low-level big-endian, length-prefixed byte
// primitives used by the SSH agent protocol, see
// https://datatracker.ietf.org/doc/html/draft-miller-ssh-agent.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortBuffer is returned by the Cursor readers when fewer bytes remain
// than a field requires. It does not advance the cursor.
var ErrShortBuffer = errors.New("wire: short buffer")

type bytesOrString interface{ []byte | string }

// PutUint32BE writes v as big-endian into buf[off:off+4]. Callers ensure buf
// is long enough.
func PutUint32BE(buf []byte, v uint32, off int) {
	binary.BigEndian.PutUint32(buf[off:off+4], v)
}

// Uint32BE reads a big-endian uint32 from buf[off:off+4]. Callers ensure buf
// is long enough.
func Uint32BE(buf []byte, off int) uint32 {
	return binary.BigEndian.Uint32(buf[off : off+4])
}

// SerializeUint32 returns the 4-byte big-endian encoding of x.
func SerializeUint32(x uint32) []byte {
	buf := make([]byte, 4)
	PutUint32BE(buf, x, 0)
	return buf
}

// SerializeString returns the length-prefixed encoding of s: a 4-byte
// big-endian length followed by the raw bytes.
func SerializeString[T bytesOrString](s T) []byte {
	if len(s) > math.MaxInt32 {
		panic(fmt.Sprintf("wire: string too large, length %d", len(s)))
	}
	buf := make([]byte, 4+len(s))
	PutUint32BE(buf, uint32(len(s)), 0)
	copy(buf[4:], s)
	return buf
}

// Cursor reads successive fields from a fixed byte slice without copying or
// advancing past the end. Every read method returns ErrShortBuffer, without
// moving the cursor, when insufficient bytes remain.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a Cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int {
	return len(c.buf) - c.off
}

// Remaining returns the unread tail of the buffer without copying.
func (c *Cursor) Remaining() []byte {
	return c.buf[c.off:]
}

// ReadUint32 reads a big-endian uint32.
func (c *Cursor) ReadUint32() (uint32, error) {
	if c.Len() < 4 {
		return 0, ErrShortBuffer
	}
	v := Uint32BE(c.buf, c.off)
	c.off += 4
	return v, nil
}

// ReadByte reads a single byte.
func (c *Cursor) ReadByte() (byte, error) {
	if c.Len() < 1 {
		return 0, ErrShortBuffer
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// ReadString reads a u32 length L followed by L bytes, returning a slice
// that aliases the underlying buffer.
func (c *Cursor) ReadString() ([]byte, error) {
	start := c.off
	l, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}
	if c.Len() < int(l) {
		c.off = start
		return nil, ErrShortBuffer
	}
	s := c.buf[c.off : c.off+int(l)]
	c.off += int(l)
	return s, nil
}
