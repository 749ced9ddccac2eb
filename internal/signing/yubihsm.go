package signing

import (
	"crypto"
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/certusone/yubihsm-go"
	"github.com/certusone/yubihsm-go/commands"
	"github.com/certusone/yubihsm-go/connector"
)

// YubiHSMKey is a crypto.Signer backed by an ed25519 key held in a
// YubiHSM2, reachable through the vendor's HTTP connector. It is meant to
// be passed to NewLocal.
type YubiHSMKey struct {
	session   *yubihsm.SessionManager
	keyID     uint16
	publicKey ed25519.PublicKey
}

// NewYubiHSMKey opens a session against the HSM at conn (host:port) and
// fetches the public half of the ed25519 key identified by keyID.
func NewYubiHSMKey(conn string, authID uint16, authPassword string, keyID uint16) (*YubiHSMKey, error) {
	sess, err := yubihsm.NewSessionManager(connector.NewHTTPConnector(conn), authID, authPassword)
	if err != nil {
		return nil, err
	}
	pub, err := yubihsmEd25519PublicKey(sess, keyID)
	if err != nil {
		return nil, err
	}
	return &YubiHSMKey{session: sess, keyID: keyID, publicKey: pub}, nil
}

func (k *YubiHSMKey) Sign(_ io.Reader, msg []byte, _ crypto.SignerOpts) ([]byte, error) {
	signature, err := yubihsmSignEddsa(k.session, k.keyID, msg)
	if err != nil {
		return nil, err
	}
	// An invalid signature could be the sign of a fault attack on the
	// HSM, and leak information about the private key.
	if !ed25519.Verify(k.publicKey, msg, signature) {
		return nil, fmt.Errorf("signing: invalid signature returned by the hsm")
	}
	return signature, nil
}

func (k *YubiHSMKey) Public() crypto.PublicKey {
	return k.publicKey
}

// Close closes the session to the HSM.
func (k *YubiHSMKey) Close() {
	k.session.Destroy()
}

func yubihsmEd25519PublicKey(session *yubihsm.SessionManager, keyID uint16) (ed25519.PublicKey, error) {
	command, err := commands.CreateGetPubKeyCommand(keyID)
	if err != nil {
		return nil, err
	}
	resp, err := session.SendEncryptedCommand(command)
	if err != nil {
		return nil, err
	}
	respCmd, ok := resp.(*commands.GetPubKeyResponse)
	if !ok {
		return nil, fmt.Errorf("signing: unexpected hsm response type %T", resp)
	}
	if respCmd.Algorithm != commands.AlgorithmED25519 || len(respCmd.KeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("signing: unexpected hsm key type, alg %d, size %d", respCmd.Algorithm, len(respCmd.KeyData))
	}
	return ed25519.PublicKey(respCmd.KeyData), nil
}

func yubihsmSignEddsa(session *yubihsm.SessionManager, keyID uint16, data []byte) ([]byte, error) {
	command, err := commands.CreateSignDataEddsaCommand(keyID, data)
	if err != nil {
		return nil, err
	}
	resp, err := session.SendEncryptedCommand(command)
	if err != nil {
		return nil, err
	}
	respCmd, ok := resp.(*commands.SignDataEddsaResponse)
	if !ok {
		return nil, fmt.Errorf("signing: unexpected hsm response type %T", resp)
	}
	return respCmd.Signature, nil
}
