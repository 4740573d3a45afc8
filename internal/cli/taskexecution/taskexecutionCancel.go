package taskexecution

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdTaskExecutionCancel = &cobra.Command{
	Use:     "cancel <pipeline_id> <run_id> <task_id>",
	Short:   "Cancel a specific task execution",
	Example: `$ gofer taskexecution cancel simple_pipeline 3 build`,
	RunE:    taskExecutionCancel,
	Args:    cobra.ExactArgs(3),
}

func init() {
	cmdTaskExecutionCancel.Flags().BoolP("force", "f", false, "stop the container immediately")
	CmdTaskExecution.AddCommand(cmdTaskExecutionCancel)
}

func taskExecutionCancel(cmd *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}
	taskID := args[2]

	force, _ := cmd.Flags().GetBool("force")

	cl.State.Fmt.Print("Cancelling task execution")

	query := url.Values{}
	query.Set("force", strconv.FormatBool(force))

	err = cl.State.Request(http.MethodPost,
		fmt.Sprintf("%s/%s/cancel", taskExecutionsPath(pipelineID, runID), taskID), query, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not cancel task execution: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Cancellation requested for task execution %q", taskID))
	cl.State.Fmt.Finish()
	return nil
}
