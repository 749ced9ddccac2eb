// Package opensshkey reads and writes the on-disk OpenSSH formats for
// unencrypted ed25519 keys: the "openssh-key-v1" private key container and
// the single-line/PEM ascii encodings built on top of it. It backs the
// local signing backend's key file loader; the wire formats used by the
// agent protocol itself live in pkg/wire and pkg/sshkey.
package opensshkey

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pactsec/agentwire/pkg/wire"
)

func readBytes(r io.Reader, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readUint32(r io.Reader) (uint32, error) {
	buf, err := readBytes(r, 4)
	if err != nil {
		return 0, err
	}
	return wire.Uint32BE(buf, 0), nil
}

func readString(r io.Reader, max int) ([]byte, error) {
	l, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if int64(l) > int64(max) {
		return nil, fmt.Errorf("length %d exceeds max %d", l, max)
	}
	return readBytes(r, int(l))
}

// readSkip reads and discards a fixed prefix, failing if it does not
// match exactly.
func readSkip(r io.Reader, prefix []byte) error {
	buf, err := readBytes(r, len(prefix))
	if err != nil {
		return err
	}
	if !bytes.Equal(buf, prefix) {
		return fmt.Errorf("unexpected data: %x", buf)
	}
	return nil
}

// parseBytes applies reader to blob, requiring it to consume every byte
// except an optional trailing run matching padding.
func parseBytes[T any](blob []byte, padding []byte, reader func(io.Reader) (T, error)) (T, error) {
	buf := bytes.NewBuffer(blob)
	res, err := reader(buf)
	if err != nil {
		return res, err
	}
	leftOver := buf.Bytes()
	if len(leftOver) > len(padding) {
		return res, fmt.Errorf("trailing %d bytes of garbage", len(leftOver))
	}
	if !bytes.Equal(leftOver, padding[:len(leftOver)]) {
		return res, fmt.Errorf("unexpected padding bytes: %x", leftOver)
	}
	return res, err
}

// serializeEd25519 is the shared wire form for both ed25519 public keys
// and ed25519 signatures: a type string followed by the raw blob.
func serializeEd25519(blob []byte) []byte {
	return bytes.Join([][]byte{
		wire.SerializeString("ssh-ed25519"),
		wire.SerializeString(blob),
	}, nil)
}

func serializeEd25519PublicKey(blob []byte) []byte {
	if len(blob) != 32 {
		panic(fmt.Sprintf("bad size %d for ed25519 public key", len(blob)))
	}
	return serializeEd25519(blob)
}

func readEd25519PublicKey(r io.Reader) ([]byte, error) {
	if err := readSkip(r, bytes.Join([][]byte{
		wire.SerializeString("ssh-ed25519"),
		wire.SerializeUint32(32),
	}, nil)); err != nil {
		return nil, fmt.Errorf("invalid public key blob prefix: %w", err)
	}
	return readBytes(r, 32)
}
