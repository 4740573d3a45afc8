package taskexecution

import (
	"fmt"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var CmdTaskExecution = &cobra.Command{
	Use:     "taskexecution",
	Short:   "Manage task executions",
	Long:    `Manage task executions. A task execution is a single task container within a wider run.`,
	Aliases: []string{"te"},
}

func taskExecutionsPath(pipelineID string, runID int64) string {
	return fmt.Sprintf("/api/namespaces/%s/pipelines/%s/runs/%d/tasks",
		cl.State.DefaultNamespace(), pipelineID, runID)
}
