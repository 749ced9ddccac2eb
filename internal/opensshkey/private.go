package opensshkey

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/pactsec/agentwire/pkg/wire"
)

var privateKeyPrefix = bytes.Join([][]byte{
	[]byte("openssh-key-v1"), {0},
	// cipher "none", kdf "none"
	wire.SerializeString("none"), wire.SerializeString("none"),
	wire.SerializeUint32(0), wire.SerializeUint32(1), // empty kdf, and #keys = 1
}, nil)

var privateKeyPadding = []byte{1, 2, 3, 4, 5, 6, 7}

// readEd25519PrivateKeyInner reads the inner private key section, which
// this package handles only in unencrypted form, returning the
// concatenation of private and public key compatible with
// crypto/ed25519.PrivateKey.
func readEd25519PrivateKeyInner(r io.Reader, publicKeyBlob []byte) ([]byte, error) {
	pub, err := parseBytes(publicKeyBlob, nil, readEd25519PublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key, pubkey invalid: %w", err)
	}

	n1, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	n2, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n1 != n2 {
		return nil, fmt.Errorf("invalid private key, bad nonce")
	}
	if err := readSkip(r, publicKeyBlob); err != nil {
		return nil, fmt.Errorf("invalid private key, inconsistent public key: %v", err)
	}
	keys, err := readString(r, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid private key, private key missing: %v", err)
	}
	if len(keys) != 64 {
		return nil, fmt.Errorf("unexpected private key size: %d", len(keys))
	}
	if !bytes.Equal(pub[:], keys[32:]) {
		return nil, fmt.Errorf("inconsistent public key")
	}
	if _, err := readString(r, 100); err != nil {
		return nil, fmt.Errorf("comment string missing")
	}
	return keys, nil
}

// ReadEd25519PrivateKey reads a binary openssh-key-v1 private key, i.e.
// after PEM decapsulation, returning the concatenation of the private and
// public key compatible with crypto/ed25519.PrivateKey. Encrypted key
// files are rejected.
func ReadEd25519PrivateKey(r io.Reader) ([]byte, error) {
	if err := readSkip(r, privateKeyPrefix); err != nil {
		return nil, fmt.Errorf("invalid or encrypted private key: %v", err)
	}
	publicKeyBlob, err := readString(r, 100)
	if err != nil {
		return nil, fmt.Errorf("invalid private key, pubkey missing: %v", err)
	}
	privBlob, err := readString(r, 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}
	if length := len(privBlob); length%8 != 0 {
		return nil, fmt.Errorf("invalid private key length: %d", length)
	}
	return parseBytes(privBlob, privateKeyPadding,
		func(r io.Reader) ([]byte, error) {
			return readEd25519PrivateKeyInner(r, publicKeyBlob)
		})
}

// WriteEd25519PrivateKey serializes priv and pub as an unencrypted
// openssh-key-v1 binary private key.
func WriteEd25519PrivateKey(priv, pub []byte) ([]byte, error) {
	if len(priv) != 32 {
		return nil, fmt.Errorf("bad size %d for ed25519 private key", len(priv))
	}
	var nonce [4]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	pubBlob := serializeEd25519PublicKey(pub)

	return bytes.Join([][]byte{
		privateKeyPrefix, wire.SerializeString(pubBlob),
		// Length of the section below, which could be encrypted but
		// isn't here: 8 (nonce) + 51 (public part) + 68 (private
		// part) + 4 (comment) + 5 (padding) = 136.
		wire.SerializeUint32(136),
		nonce[:], nonce[:],
		pubBlob,
		wire.SerializeUint32(64),
		priv[:],
		pub[:],
		wire.SerializeUint32(0), // empty comment
		[]byte{1, 2, 3, 4, 5},
	}, nil), nil
}
