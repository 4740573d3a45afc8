package run

import (
	"fmt"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

// CmdRun is the parent for all run commands.
var CmdRun = &cobra.Command{
	Use:   "run",
	Short: "Manage pipeline runs",
	Long: `Manage pipeline runs.

A "run" is a single instance of a pipeline's execution.`,
}

func runsPath(pipelineID string) string {
	return fmt.Sprintf("/api/namespaces/%s/pipelines/%s/runs", cl.State.DefaultNamespace(), pipelineID)
}
