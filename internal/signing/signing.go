// Package signing adapts crypto.Signer-shaped key material, whether an
// in-process ed25519 key or a hardware-backed key such as a YubiHSM, into
// the Signer capability the server-role agent uses to answer SIGN_REQUEST.
package signing

import (
	"crypto"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/ssh"

	"github.com/pactsec/agentwire/pkg/agent"
)

// Signer produces OpenSSH agent signature blobs for one identity.
type Signer interface {
	// Public returns the identity's SSH public key.
	Public() ssh.PublicKey
	// Comment returns the comment to advertise for this identity.
	Comment() string
	// Sign returns the raw signature bytes over data. The agent protocol's
	// (sig_format, blob) wrapping is added by the server engine from the
	// inbound request's context, not by the Signer.
	Sign(data []byte, flags agent.SignFlags) ([]byte, error)
}

type localSigner struct {
	signer  ssh.AlgorithmSigner
	pub     ssh.PublicKey
	comment string
}

// NewLocal wraps a crypto.Signer, whether backed by an on-disk key or a
// hardware module, as a Signer. key types that do not support the
// SSH_AGENT_RSA_SHA2_* algorithm negotiation, i.e. everything but RSA, are
// still accepted; flags.Hash is then ignored.
func NewLocal(key crypto.Signer, comment string) (Signer, error) {
	sshSigner, err := ssh.NewSignerFromSigner(key)
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	algSigner, ok := sshSigner.(ssh.AlgorithmSigner)
	if !ok {
		return nil, fmt.Errorf("signing: key type %T does not support algorithm selection", key)
	}
	return &localSigner{signer: algSigner, pub: sshSigner.PublicKey(), comment: comment}, nil
}

func (s *localSigner) Public() ssh.PublicKey { return s.pub }
func (s *localSigner) Comment() string       { return s.comment }

func (s *localSigner) Sign(data []byte, flags agent.SignFlags) ([]byte, error) {
	var algo string
	if s.pub.Type() != ssh.KeyAlgoRSA {
		flags.Hash = ""
	}
	switch flags.Hash {
	case "sha256":
		algo = ssh.SigAlgoRSASHA2256
	case "sha512":
		algo = ssh.SigAlgoRSASHA2512
	}
	sig, err := s.signer.SignWithAlgorithm(rand.Reader, data, algo)
	if err != nil {
		return nil, err
	}
	return sig.Blob, nil
}

// Keyring answers SIGN_REQUEST and REQUEST_IDENTITIES against a fixed set
// of Signers, keyed by SSH public key blob.
type Keyring struct {
	signers map[string]Signer
}

// NewKeyring indexes signers by their public key blob.
func NewKeyring(signers ...Signer) *Keyring {
	k := &Keyring{signers: make(map[string]Signer, len(signers))}
	for _, s := range signers {
		k.signers[string(s.Public().Marshal())] = s
	}
	return k
}

// Identities returns every signer's identity for a REQUEST_IDENTITIES
// reply.
func (k *Keyring) Identities() []agent.IdentityEntry {
	entries := make([]agent.IdentityEntry, 0, len(k.signers))
	for _, s := range k.signers {
		entries = append(entries, agent.IdentityEntry{Blob: s.Public().Marshal(), Comment: s.Comment()})
	}
	return entries
}

// Lookup returns the signer for blob, or false if the keyring holds no
// such identity.
func (k *Keyring) Lookup(blob []byte) (Signer, bool) {
	s, ok := k.signers[string(blob)]
	return s, ok
}
