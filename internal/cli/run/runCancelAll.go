package run

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdRunCancelAll = &cobra.Command{
	Use:     "cancel-all <pipeline_id>",
	Short:   "Cancel all in progress runs for a pipeline",
	Example: `$ gofer run cancel-all simple_pipeline`,
	RunE:    runCancelAll,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdRunCancelAll.Flags().BoolP("force", "f", false, "stop containers immediately")
	CmdRun.AddCommand(cmdRunCancelAll)
}

func runCancelAll(cmd *cobra.Command, args []string) error {
	pipelineID := args[0]
	force, _ := cmd.Flags().GetBool("force")

	cl.State.Fmt.Print("Cancelling all runs")

	query := url.Values{}
	query.Set("force", strconv.FormatBool(force))

	var resp struct {
		Runs []int64 `json:"runs"`
	}
	err := cl.State.Request(http.MethodPost, runsPath(pipelineID)+"/cancel-all", query, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not cancel runs: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Cancellation requested for %d run(s)", len(resp.Runs)))
	cl.State.Fmt.Finish()
	return nil
}
