package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pactsec/agentwire/pkg/agent"
)

var (
	signHash     string
	signDataFile string
)

var signCmd = &cobra.Command{
	Use:   "sign <base64-pubkey-blob>",
	Short: "Ask the agent to sign data with one identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runSign,
}

func init() {
	signCmd.Flags().StringVar(&signHash, "hash", "", `RSA-SHA2 variant to request: "", "sha256", or "sha512"`)
	signCmd.Flags().StringVar(&signDataFile, "data", "-", "file to sign, or - for stdin")
	rootCmd.AddCommand(signCmd)
}

func runSign(cmd *cobra.Command, args []string) error {
	blob, err := base64.StdEncoding.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("decoding public key blob: %w", err)
	}

	var data []byte
	if signDataFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(signDataFile)
	}
	if err != nil {
		return fmt.Errorf("reading data to sign: %w", err)
	}

	c, err := connect()
	if err != nil {
		return err
	}
	defer c.Close()

	keys, err := c.GetIdentities()
	if err != nil {
		return fmt.Errorf("requesting identities: %w", err)
	}
	key, err := matchIdentity(keys, blob)
	if err != nil {
		return err
	}

	sig, err := c.Sign(key, data, &agent.SignOptions{Hash: signHash})
	if err != nil {
		return fmt.Errorf("signing: %w", err)
	}
	fmt.Println(base64.StdEncoding.EncodeToString(sig))
	return nil
}

func matchIdentity(keys []agent.ParsedKey, blob []byte) (agent.ParsedKey, error) {
	for _, k := range keys {
		if string(k.Blob()) == string(blob) {
			return k, nil
		}
	}
	return nil, fmt.Errorf("the agent has no identity matching the given public key")
}
