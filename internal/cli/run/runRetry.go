package run

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdRunRetry = &cobra.Command{
	Use:   "retry <pipeline_id> <run_id>",
	Short: "Retry a previous run",
	Long: `Retry a previous run.

Creates a brand new run using the same configuration version and user supplied variables as the
given run.`,
	Example: `$ gofer run retry simple_pipeline 3`,
	RunE:    runRetry,
	Args:    cobra.ExactArgs(2),
}

func init() {
	CmdRun.AddCommand(cmdRunRetry)
}

func runRetry(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Print("Retrying run")

	var resp struct {
		Run struct {
			ID int64 `json:"id"`
		} `json:"run"`
	}
	err = cl.State.Request(http.MethodPost,
		fmt.Sprintf("%s/%d/retry", runsPath(pipelineID), runID), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not retry run: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Started run %d as a retry of run %d", resp.Run.ID, runID))
	cl.State.Fmt.Finish()
	return nil
}
