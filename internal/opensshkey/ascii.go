package opensshkey

import (
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
)

const pemPrivateKeyTag = "OPENSSH PRIVATE KEY"

// ErrNotPEM is returned by ParsePrivateKeyPEM when the input is not a PEM
// block at all.
var ErrNotPEM = errors.New("opensshkey: not a PEM file")

// ParsePrivateKeyPEM parses a PEM-encapsulated unencrypted ed25519
// private key, as written by ssh-keygen and by WritePrivateKeyPEM.
func ParsePrivateKeyPEM(ascii []byte) ([]byte, error) {
	block, _ := pem.Decode(ascii)
	if block == nil {
		return nil, ErrNotPEM
	}
	if block.Type != pemPrivateKeyTag {
		return nil, fmt.Errorf("unexpected PEM tag: %q", block.Type)
	}
	return parseBytes(block.Bytes, nil, ReadEd25519PrivateKey)
}

// WritePrivateKeyPEM PEM-encapsulates an unencrypted ed25519 private key.
func WritePrivateKeyPEM(w io.Writer, priv, pub []byte) error {
	blob, err := WriteEd25519PrivateKey(priv, pub)
	if err != nil {
		return err
	}
	return pem.Encode(w, &pem.Block{Type: pemPrivateKeyTag, Bytes: blob})
}

// splitPublicKeyLine splits a single authorized_keys-style line into its
// type, base64-encoded blob, and optional comment fields.
func splitPublicKeyLine(ascii []byte) (typ string, blob []byte, comment string, err error) {
	if eol := bytes.IndexRune(ascii, '\n'); eol >= 0 {
		if eol != len(ascii)-1 {
			return "", nil, "", fmt.Errorf("invalid multi-line public key file")
		}
		ascii = ascii[:eol]
	}
	spaceOrTab := func(r rune) bool { return r == ' ' || r == '\t' }

	s1 := bytes.IndexFunc(ascii, spaceOrTab)
	if s1 < 0 {
		return "", nil, "", fmt.Errorf("invalid public key line")
	}
	typ = string(ascii[:s1])
	ascii = bytes.TrimLeftFunc(ascii[s1+1:], spaceOrTab)

	s2 := bytes.IndexFunc(ascii, spaceOrTab)
	if s2 < 0 {
		return typ, ascii, "", nil
	}
	return typ, ascii[:s2], string(bytes.TrimFunc(ascii[s2+1:], spaceOrTab)), nil
}

// ParsePublicKeyLine parses an authorized_keys-style single line ed25519
// public key, returning its raw 32-byte value and comment.
func ParsePublicKeyLine(ascii []byte) ([]byte, string, error) {
	typ, keyBase64, comment, err := splitPublicKeyLine(ascii)
	if err != nil {
		return nil, "", err
	}
	if typ != "ssh-ed25519" {
		return nil, "", fmt.Errorf("unsupported public key type: %v", typ)
	}
	decoder := base64.NewDecoder(base64.StdEncoding, bytes.NewBuffer(keyBase64))
	key, err := readEd25519PublicKey(decoder)
	if err != nil {
		return nil, "", err
	}
	buf := make([]byte, 1)
	if n, err := decoder.Read(buf); n > 0 || err != io.EOF {
		return nil, "", fmt.Errorf("trailing garbage in base64 encoded public key")
	}
	return key, comment, nil
}

// WritePublicKeyLine writes pub in authorized_keys single-line format.
func WritePublicKeyLine(w io.Writer, pub []byte, comment string) error {
	blob := serializeEd25519PublicKey(pub)
	if len(comment) > 0 {
		comment = " " + comment
	}
	_, err := fmt.Fprintf(w, "ssh-ed25519 %s%s", base64.StdEncoding.EncodeToString(blob), comment)
	return err
}
