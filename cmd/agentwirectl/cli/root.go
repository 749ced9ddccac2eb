// Package cli implements the agentwirectl subcommands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pactsec/agentwire/pkg/sshkey"
	"github.com/pactsec/agentwire/pkg/transport"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:   "agentwirectl",
	Short: "Talk to an SSH agent over its socket",
	Long: `agentwirectl connects to an SSH agent, either the one named by
SSH_AUTH_SOCK or one named explicitly with --socket, and issues
REQUEST_IDENTITIES, followed by a SIGN_REQUEST for the sign subcommand.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "", "agent socket path (default: $SSH_AUTH_SOCK)")
}

func connect() (*transport.Client, error) {
	if socketPath != "" {
		return transport.ConnectTo(socketPath, sshkey.Parser{})
	}
	c, err := transport.Connect(sshkey.Parser{})
	if err != nil {
		return nil, fmt.Errorf("connecting to agent: %w", err)
	}
	return c, nil
}
