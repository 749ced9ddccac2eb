package agent

// ParsedKey is a structured public key as produced by a KeyParser. Equality
// between two ParsedKeys is defined by their Blob, not by identity.
type ParsedKey interface {
	// Type returns the SSH key type, e.g. "ssh-rsa" or "ssh-ed25519".
	Type() string
	// Comment returns the key's comment, or "" if it has none.
	Comment() string
	// Blob returns the canonical SSH wire encoding of the public key.
	Blob() []byte
}

// KeyParser is the external capability the engine relies on to convert raw
// SSH public-key blobs to structured keys and back. A concrete
// implementation wrapping golang.org/x/crypto/ssh lives in pkg/sshkey.
type KeyParser interface {
	Parse(blob []byte) (ParsedKey, error)
}

// identity wraps a ParsedKey with the comment string decoded from the wire,
// used when the peer supplies a comment out-of-band from the key blob
// itself. The key's own comment, if any, takes precedence.
type identity struct {
	key         ParsedKey
	wireComment string
}

func (i identity) Type() string { return i.key.Type() }

func (i identity) Comment() string {
	if c := i.key.Comment(); c != "" {
		return c
	}
	return i.wireComment
}

func (i identity) Blob() []byte { return i.key.Blob() }
