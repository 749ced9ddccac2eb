package agent

import (
	"errors"

	"github.com/pactsec/agentwire/pkg/wire"
)

// ErrEmptyFrame is returned by Framer.Next when a frame's length field is
// zero; every frame must carry at least a type byte.
var ErrEmptyFrame = errors.New("agent: invalid empty agent message")

// Frame is one decoded wire message: the type byte and the bytes that
// follow it, not including the outer length field.
type Frame struct {
	Type    MessageType
	Payload []byte
}

// Framer incrementally decodes the length-prefixed frames described in
// spec §4.2 from an arbitrary sequence of byte chunks. It never yields a
// partial frame and never loses bytes across calls to Ingest, regardless of
// how the input is chunked.
//
// A Framer is not safe for concurrent use.
type Framer struct {
	buf    []byte
	msgLen int // length of the current frame's type+payload, -1 if unknown
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{msgLen: -1}
}

// Ingest appends chunk to the internal buffer. It performs no decoding;
// call Next to drain whole frames.
func (f *Framer) Ingest(chunk []byte) {
	f.buf = append(f.buf, chunk...)
}

// Next extracts one complete frame from the buffer, if one is available.
// It returns ok=false, with the buffer untouched, if fewer bytes than a
// full frame are currently buffered.
func (f *Framer) Next() (Frame, bool, error) {
	if f.msgLen < 0 {
		if len(f.buf) < 5 {
			return Frame{}, false, nil
		}
		f.msgLen = int(wire.Uint32BE(f.buf, 0))
		if f.msgLen == 0 {
			return Frame{}, false, ErrEmptyFrame
		}
	}
	total := 4 + f.msgLen
	if len(f.buf) < total {
		return Frame{}, false, nil
	}

	typ := MessageType(f.buf[4])
	payload := make([]byte, f.msgLen-1)
	copy(payload, f.buf[5:total])

	rest := f.buf[total:]
	if len(rest) == 0 {
		f.buf = nil
	} else {
		f.buf = append([]byte(nil), rest...)
	}
	f.msgLen = -1
	return Frame{Type: typ, Payload: payload}, true, nil
}

// EncodeFrame produces the single contiguous wire encoding of one outbound
// message: a 4-byte big-endian length, the type byte, and body.
func EncodeFrame(t MessageType, body []byte) []byte {
	frame := make([]byte, 4+1+len(body))
	wire.PutUint32BE(frame, uint32(1+len(body)), 0)
	frame[4] = byte(t)
	copy(frame[5:], body)
	return frame
}
