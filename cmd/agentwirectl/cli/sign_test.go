package cli

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pactsec/agentwire/pkg/agent"
)

type testKey struct {
	typ, comment string
	blob         []byte
}

func (k testKey) Type() string    { return k.typ }
func (k testKey) Comment() string { return k.comment }
func (k testKey) Blob() []byte    { return k.blob }

func TestMatchIdentityFindsExactBlob(t *testing.T) {
	keys := []agent.ParsedKey{
		testKey{typ: "ssh-ed25519", comment: "laptop", blob: []byte("blob-a")},
		testKey{typ: "ssh-rsa", comment: "yubikey", blob: []byte("blob-b")},
	}

	got, err := matchIdentity(keys, []byte("blob-b"))
	require.NoError(t, err)
	require.Equal(t, "yubikey", got.Comment())
}

func TestMatchIdentityReportsNoMatch(t *testing.T) {
	keys := []agent.ParsedKey{
		testKey{typ: "ssh-ed25519", comment: "laptop", blob: []byte("blob-a")},
	}

	_, err := matchIdentity(keys, []byte("blob-missing"))
	require.Error(t, err)
}

func TestMatchIdentityAgainstEmptyKeyring(t *testing.T) {
	_, err := matchIdentity(nil, []byte("anything"))
	require.Error(t, err)
}
