package pipeline

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdPipelineDisable = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a pipeline",
	Long: `Disable a pipeline.

A disabled pipeline refuses new runs, both manual and extension triggered, until it is enabled
again.`,
	Example: `$ gofer pipeline disable simple_pipeline`,
	RunE:    pipelineDisable,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdPipeline.AddCommand(cmdPipelineDisable)
}

func pipelineDisable(_ *cobra.Command, args []string) error {
	id := args[0]

	cl.State.Fmt.Print("Disabling pipeline")

	err := cl.State.Request(http.MethodPost, pipelinePath(id)+"/disable", nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not disable pipeline: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Disabled pipeline %q", id))
	cl.State.Fmt.Finish()
	return nil
}
