package extension

import (
	"github.com/spf13/cobra"
)

var CmdExtension = &cobra.Command{
	Use:   "extension",
	Short: "Manage server extensions",
	Long: `Manage server extensions.

Extensions are long running containers that can subscribe pipelines to external events and start
runs on their behalf. Installing and removing extensions requires a management token.`,
}

const extensionsPath = "/api/extensions"
