package run

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdRunStart = &cobra.Command{
	Use:   "start <pipeline_id>",
	Short: "Start a new run",
	Long: `Start a new run.

Starts a run against the live configuration version of the pipeline. Extra variables can be passed
to every task in the run with the --var flag.`,
	Example: `$ gofer run start simple_pipeline
$ gofer run start simple_pipeline --var foo=bar`,
	RunE: runStart,
	Args: cobra.ExactArgs(1),
}

func init() {
	cmdRunStart.Flags().StringToString("var", nil, "variables given to each task in key=value form")
	CmdRun.AddCommand(cmdRunStart)
}

func runStart(cmd *cobra.Command, args []string) error {
	pipelineID := args[0]
	variables, _ := cmd.Flags().GetStringToString("var")

	cl.State.Fmt.Print("Starting run")

	body := struct {
		Variables map[string]string `json:"variables,omitempty"`
	}{Variables: variables}

	var resp struct {
		Run struct {
			ID int64 `json:"id"`
		} `json:"run"`
	}
	err := cl.State.Request(http.MethodPost, runsPath(pipelineID), nil, body, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not start run: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Started run %d for pipeline %q", resp.Run.ID, pipelineID))
	cl.State.Fmt.Finish()
	return nil
}
