package taskexecution

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdTaskExecutionDeleteLogs = &cobra.Command{
	Use:     "delete-logs <pipeline_id> <run_id> <task_id>",
	Short:   "Remove the stored logs for a task execution",
	Example: `$ gofer taskexecution delete-logs simple_pipeline 3 build`,
	RunE:    taskExecutionDeleteLogs,
	Args:    cobra.ExactArgs(3),
}

func init() {
	CmdTaskExecution.AddCommand(cmdTaskExecutionDeleteLogs)
}

func taskExecutionDeleteLogs(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}
	taskID := args[2]

	cl.State.Fmt.Print("Removing logs")

	err = cl.State.Request(http.MethodDelete,
		fmt.Sprintf("%s/%s/logs", taskExecutionsPath(pipelineID, runID), taskID), nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not remove logs: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Removed logs for task execution %q", taskID))
	cl.State.Fmt.Finish()
	return nil
}
