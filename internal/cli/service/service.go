package service

import (
	"github.com/spf13/cobra"
)

// CmdService is the parent for all commands that control or inspect the server itself.
var CmdService = &cobra.Command{
	Use:   "service",
	Short: "Manages service related commands for Gofer.",
	Long: `Manages service related commands for the Gofer Service/API.

These commands help with managing and running the Gofer service.`,
}

var cmdServiceTokens = &cobra.Command{
	Use:   "tokens",
	Short: "Manage api tokens",
}

func init() {
	CmdService.AddCommand(cmdServiceTokens)
}
