// Command agentwirectl is a client for talking to an agent over
// SSH_AUTH_SOCK: it lists identities and requests signatures without
// needing an actual ssh invocation.
package main

import (
	"os"

	"github.com/pactsec/agentwire/cmd/agentwirectl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
