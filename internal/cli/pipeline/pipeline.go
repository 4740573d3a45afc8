package pipeline

import (
	"fmt"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/clintjedwards/gofer/internal/cli/pipeline/config"
	"github.com/clintjedwards/gofer/internal/cli/pipeline/extension"
	"github.com/spf13/cobra"
)

// CmdPipeline is the parent for all pipeline commands.
var CmdPipeline = &cobra.Command{
	Use:   "pipeline",
	Short: "Manage pipelines",
	Long: `Manage pipelines.

A "pipeline" is a directed acyclic graph of tasks that run together. A single execution of a pipeline is called a
"run".`,
}

func init() {
	CmdPipeline.AddCommand(config.CmdConfig)
	CmdPipeline.AddCommand(extension.CmdExtension)
}

// pipelinePath returns the API path prefix for a single pipeline within the current namespace.
func pipelinePath(pipelineID string) string {
	return fmt.Sprintf("/api/namespaces/%s/pipelines/%s", cl.State.DefaultNamespace(), pipelineID)
}

// pipelinesPath returns the API path for the pipeline collection within the current namespace.
func pipelinesPath() string {
	return fmt.Sprintf("/api/namespaces/%s/pipelines", cl.State.DefaultNamespace())
}
