package wire

import (
	"bytes"
	"testing"
)

func TestSerializeString(t *testing.T) {
	for _, tbl := range []struct {
		desc string
		in   string
		want []byte
	}{
		{"empty", "", []byte{0, 0, 0, 0}},
		{"valid", "foo is a bar", bytes.Join([][]byte{{0, 0, 0, 12}, []byte("foo is a bar")}, nil)},
	} {
		if got, want := SerializeString(tbl.in), tbl.want; !bytes.Equal(got, want) {
			t.Errorf("%q: got %x but wanted %x", tbl.desc, got, want)
		}
	}
}

func TestCursorReadString(t *testing.T) {
	buf := bytes.Join([][]byte{
		SerializeString("ssh-rsa"),
		SerializeString("a"),
	}, nil)
	c := NewCursor(buf)
	first, err := c.ReadString()
	if err != nil {
		t.Fatalf("first ReadString: %v", err)
	}
	if string(first) != "ssh-rsa" {
		t.Errorf("got %q, wanted %q", first, "ssh-rsa")
	}
	second, err := c.ReadString()
	if err != nil {
		t.Fatalf("second ReadString: %v", err)
	}
	if string(second) != "a" {
		t.Errorf("got %q, wanted %q", second, "a")
	}
	if c.Len() != 0 {
		t.Errorf("expected cursor exhausted, %d bytes left", c.Len())
	}
}

func TestCursorReadStringUnderrun(t *testing.T) {
	// Length field claims 7 bytes, only 3 are present.
	buf := []byte{0, 0, 0, 7, 'a', 'b', 'c'}
	c := NewCursor(buf)
	if _, err := c.ReadString(); err != ErrShortBuffer {
		t.Fatalf("got err %v, wanted ErrShortBuffer", err)
	}
	// Cursor must not have advanced.
	if c.Len() != len(buf) {
		t.Errorf("cursor advanced on underrun: %d bytes left, wanted %d", c.Len(), len(buf))
	}
}

func TestCursorReadUint32Underrun(t *testing.T) {
	c := NewCursor([]byte{0, 0, 1})
	if _, err := c.ReadUint32(); err != ErrShortBuffer {
		t.Fatalf("got err %v, wanted ErrShortBuffer", err)
	}
	if c.Len() != 3 {
		t.Errorf("cursor advanced on underrun")
	}
}
