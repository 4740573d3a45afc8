package run

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdRunCancel = &cobra.Command{
	Use:   "cancel <pipeline_id> <run_id>",
	Short: "Cancel a run in progress",
	Long: `Cancel a run in progress.

Asks all in-flight task executions to stop and marks the run cancelled. Containers get a grace
period to shut down cleanly; pass --force to stop them immediately.`,
	Example: `$ gofer run cancel simple_pipeline 3
$ gofer run cancel simple_pipeline 3 --force`,
	RunE: runCancel,
	Args: cobra.ExactArgs(2),
}

func init() {
	cmdRunCancel.Flags().BoolP("force", "f", false, "stop containers immediately")
	CmdRun.AddCommand(cmdRunCancel)
}

func runCancel(cmd *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}

	force, _ := cmd.Flags().GetBool("force")

	cl.State.Fmt.Print("Cancelling run")

	query := url.Values{}
	query.Set("force", strconv.FormatBool(force))

	err = cl.State.Request(http.MethodPost,
		fmt.Sprintf("%s/%d/cancel", runsPath(pipelineID), runID), query, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not cancel run: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Cancellation requested for run %d", runID))
	cl.State.Fmt.Finish()
	return nil
}
