package cli

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

var listIdentitiesCmd = &cobra.Command{
	Use:   "list-identities",
	Short: "List the identities the agent will offer",
	RunE:  listIdentities,
}

func init() {
	rootCmd.AddCommand(listIdentitiesCmd)
}

func listIdentities(cmd *cobra.Command, args []string) error {
	c, err := connect()
	if err != nil {
		return err
	}
	defer c.Close()

	keys, err := c.GetIdentities()
	if err != nil {
		return fmt.Errorf("requesting identities: %w", err)
	}
	if len(keys) == 0 {
		fmt.Println("The agent has no identities.")
		return nil
	}
	for _, k := range keys {
		fmt.Printf("%s %s %s\n", k.Type(), base64.StdEncoding.EncodeToString(k.Blob()), k.Comment())
	}
	return nil
}
