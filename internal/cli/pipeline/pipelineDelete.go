package pipeline

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdPipelineDelete = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a pipeline",
	Long: `Delete a pipeline.

This removes the pipeline along with all of its configs, runs, and task executions. It cannot be
undone.`,
	Example: `$ gofer pipeline delete simple_pipeline`,
	RunE:    pipelineDelete,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdPipeline.AddCommand(cmdPipelineDelete)
}

func pipelineDelete(_ *cobra.Command, args []string) error {
	id := args[0]

	cl.State.Fmt.Print("Deleting pipeline")

	err := cl.State.Request(http.MethodDelete, pipelinePath(id), nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not delete pipeline: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Deleted pipeline %q", id))
	cl.State.Fmt.Finish()
	return nil
}
