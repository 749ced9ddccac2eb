// Package sshkey implements agent.KeyParser on top of
// golang.org/x/crypto/ssh, giving the engine a concrete way to turn the
// raw key blobs carried on the wire into structured keys, for any key
// type the ssh package understands.
package sshkey

import (
	"golang.org/x/crypto/ssh"

	"github.com/pactsec/agentwire/pkg/agent"
)

type key struct {
	pub     ssh.PublicKey
	comment string
}

func (k *key) Type() string    { return k.pub.Type() }
func (k *key) Comment() string { return k.comment }
func (k *key) Blob() []byte    { return k.pub.Marshal() }

// Parser is an agent.KeyParser backed by ssh.ParsePublicKey.
type Parser struct{}

func (Parser) Parse(blob []byte) (agent.ParsedKey, error) {
	pub, err := ssh.ParsePublicKey(blob)
	if err != nil {
		return nil, err
	}
	return &key{pub: pub}, nil
}

// Wrap adapts an already-parsed ssh.PublicKey, e.g. one produced by a
// local signing backend, into an agent.ParsedKey.
func Wrap(pub ssh.PublicKey, comment string) agent.ParsedKey {
	return &key{pub: pub, comment: comment}
}
