package taskexecution

import (
	"fmt"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var cmdTaskExecutionLogs = &cobra.Command{
	Use:     "logs <pipeline_id> <run_id> <task_id>",
	Short:   "Stream logs for a task execution",
	Long:    `Stream logs for a task execution. Follows the log file until the container finishes.`,
	Example: `$ gofer taskexecution logs simple_pipeline 3 build`,
	RunE:    taskExecutionLogs,
	Args:    cobra.ExactArgs(3),
}

func init() {
	CmdTaskExecution.AddCommand(cmdTaskExecutionLogs)
}

func taskExecutionLogs(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}
	taskID := args[2]

	path := fmt.Sprintf("/api/namespaces/%s/pipelines/%s/runs/%d/tasks/%s/logs",
		cl.State.DefaultNamespace(), pipelineID, runID, taskID)

	conn, err := cl.State.Websocket(path, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not stream logs: %v", err))
		cl.State.Fmt.Finish()
		return err
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}

			cl.State.Fmt.PrintErr(fmt.Sprintf("lost connection to server: %v", err))
			cl.State.Fmt.Finish()
			return err
		}

		cl.State.Fmt.Println(string(message))
	}

	cl.State.Fmt.Finish()
	return nil
}
