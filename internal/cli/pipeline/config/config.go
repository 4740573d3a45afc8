package config

import (
	"fmt"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

// CmdConfig is the parent for all pipeline config commands.
var CmdConfig = &cobra.Command{
	Use:   "config",
	Short: "Manage pipeline configuration versions",
	Long: `Manage pipeline configuration versions.

Every registration of a pipeline configuration creates a new immutable version. The newest version
is automatically promoted to be the live version that new runs execute against.`,
}

func configsPath(pipelineID string) string {
	return fmt.Sprintf("/api/namespaces/%s/pipelines/%s/configs", cl.State.DefaultNamespace(), pipelineID)
}
