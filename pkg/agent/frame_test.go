package agent

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"
)

func h(ascii string) []byte {
	s, err := hex.DecodeString(ascii)
	if err != nil {
		panic(fmt.Errorf("invalid hex %q: %v", ascii, err))
	}
	return s
}

func TestFramerRoundTrip(t *testing.T) {
	// Two FAILURE messages back to back.
	wire := bytes.Join([][]byte{
		h("0000000105"),
		h("0000000105"),
	}, nil)

	for _, chunkSize := range []int{1, 2, 3, 5, 7, 64, len(wire)} {
		f := NewFramer()
		var got []Frame
		for off := 0; off < len(wire); off += chunkSize {
			end := off + chunkSize
			if end > len(wire) {
				end = len(wire)
			}
			f.Ingest(wire[off:end])
			for {
				frame, ok, err := f.Next()
				if err != nil {
					t.Fatalf("chunkSize %d: unexpected error: %v", chunkSize, err)
				}
				if !ok {
					break
				}
				got = append(got, frame)
			}
		}
		if len(got) != 2 {
			t.Fatalf("chunkSize %d: got %d frames, wanted 2", chunkSize, len(got))
		}
		for _, frame := range got {
			if frame.Type != Failure || len(frame.Payload) != 0 {
				t.Errorf("chunkSize %d: unexpected frame %+v", chunkSize, frame)
			}
		}
	}
}

func TestFramerSplitLengthField(t *testing.T) {
	f := NewFramer()
	wire := h("0000000105")
	// Feed the length field one byte at a time.
	for i := 0; i < 3; i++ {
		f.Ingest(wire[i : i+1])
		if _, ok, err := f.Next(); ok || err != nil {
			t.Fatalf("byte %d: expected no frame yet, got ok=%v err=%v", i, ok, err)
		}
	}
	f.Ingest(wire[3:])
	frame, ok, err := f.Next()
	if err != nil || !ok {
		t.Fatalf("expected a complete frame, got ok=%v err=%v", ok, err)
	}
	if frame.Type != Failure {
		t.Errorf("got type %v, wanted Failure", frame.Type)
	}
}

func TestFramerMultipleFramesInOneWrite(t *testing.T) {
	f := NewFramer()
	f.Ingest(bytes.Join([][]byte{h("0000000105"), h("0000000206fe")}, nil))

	first, ok, err := f.Next()
	if err != nil || !ok {
		t.Fatalf("first frame: ok=%v err=%v", ok, err)
	}
	if first.Type != Failure {
		t.Errorf("first frame type = %v, wanted Failure", first.Type)
	}

	second, ok, err := f.Next()
	if err != nil || !ok {
		t.Fatalf("second frame: ok=%v err=%v", ok, err)
	}
	if second.Type != MessageType(6) || !bytes.Equal(second.Payload, []byte{0xfe}) {
		t.Errorf("second frame = %+v, wanted type 6 payload fe", second)
	}

	if _, ok, err := f.Next(); ok || err != nil {
		t.Fatalf("expected buffer drained, got ok=%v err=%v", ok, err)
	}
}

func TestFramerEmptyFrame(t *testing.T) {
	f := NewFramer()
	f.Ingest(h("0000000005"))
	if _, _, err := f.Next(); err != ErrEmptyFrame {
		t.Fatalf("got err %v, wanted ErrEmptyFrame", err)
	}
}

func TestEncodeFrame(t *testing.T) {
	got := EncodeFrame(RequestIdentities, nil)
	if want := []byte{0, 0, 0, 1, byte(RequestIdentities)}; !bytes.Equal(got, want) {
		t.Errorf("got %x, wanted %x", got, want)
	}
}
