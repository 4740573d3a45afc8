package pipeline

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdPipelineEnable = &cobra.Command{
	Use:     "enable <id>",
	Short:   "Enable a pipeline",
	Example: `$ gofer pipeline enable simple_pipeline`,
	RunE:    pipelineEnable,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdPipeline.AddCommand(cmdPipelineEnable)
}

func pipelineEnable(_ *cobra.Command, args []string) error {
	id := args[0]

	cl.State.Fmt.Print("Enabling pipeline")

	err := cl.State.Request(http.MethodPost, pipelinePath(id)+"/enable", nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not enable pipeline: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Enabled pipeline %q", id))
	cl.State.Fmt.Finish()
	return nil
}
