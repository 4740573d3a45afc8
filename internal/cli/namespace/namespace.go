package namespace

import (
	"github.com/spf13/cobra"
)

// CmdNamespace is the parent for all namespace commands.
var CmdNamespace = &cobra.Command{
	Use:   "namespace",
	Short: "Manage namespaces",
	Long: `Manage namespaces.

A namespace is a divider between sets of pipelines. It's used to separate different permission sets,
teams, or environments from each other.`,
}
