package utils

import (
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"
)

// PropagatePersistentPreRun runs the parent's PersistentPreRun, so the global options are loaded before a
// subcommand runs.
func PropagatePersistentPreRun(cmd *cobra.Command, args []string) {
	if parent := cmd.Parent(); parent != nil && parent.PersistentPreRun != nil {
		parent.PersistentPreRun(parent, args)
	}
}

// CallHelpCommand prints the help of commands that only group subcommands.
func CallHelpCommand(cmd *cobra.Command, _ []string) error {
	if err := cmd.Help(); err != nil {
		log.Ctx(cmd.Context()).Fatalf("Error calling help command: %s", err.Error())
	}
	return nil
}
