package object

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdObjectRunDelete = &cobra.Command{
	Use:     "delete <pipeline_id> <run_id> <key>",
	Short:   "Remove a run object",
	Example: `$ gofer object run delete simple_pipeline 3 some_key`,
	RunE:    objectRunDelete,
	Args:    cobra.ExactArgs(3),
}

func init() {
	cmdObjectRun.AddCommand(cmdObjectRunDelete)
}

func objectRunDelete(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}
	key := args[2]

	cl.State.Fmt.Print("Removing object")

	err = cl.State.Request(http.MethodDelete, runObjectsPath(pipelineID, runID)+"/"+key, nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not remove object: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Removed object %q", key))
	cl.State.Fmt.Finish()
	return nil
}
