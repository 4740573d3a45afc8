package object

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdObjectPipelineDelete = &cobra.Command{
	Use:     "delete <pipeline_id> <key>",
	Short:   "Remove a pipeline object",
	Example: `$ gofer object pipeline delete simple_pipeline some_key`,
	RunE:    objectPipelineDelete,
	Args:    cobra.ExactArgs(2),
}

func init() {
	cmdObjectPipeline.AddCommand(cmdObjectPipelineDelete)
}

func objectPipelineDelete(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	key := args[1]

	cl.State.Fmt.Print("Removing object")

	err := cl.State.Request(http.MethodDelete, pipelineObjectsPath(pipelineID)+"/"+key, nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not remove object: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Removed object %q", key))
	cl.State.Fmt.Finish()
	return nil
}
