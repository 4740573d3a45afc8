package object

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdObjectRunGet = &cobra.Command{
	Use:   "get <pipeline_id> <run_id> <key>",
	Short: "Fetch a run object",
	Long: `Fetch a run object.

The raw object content is written to stdout so it can be piped or redirected.`,
	Example: `$ gofer object run get simple_pipeline 3 some_key > object.bin`,
	RunE:    objectRunGet,
	Args:    cobra.ExactArgs(3),
}

func init() {
	cmdObjectRun.AddCommand(cmdObjectRunGet)
}

func objectRunGet(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}
	key := args[2]

	cl.State.Fmt.Print("Retrieving object")

	var resp struct {
		Content []byte `json:"content"`
	}
	err = cl.State.Request(http.MethodGet, runObjectsPath(pipelineID, runID)+"/"+key, nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get object: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Finish()

	_, err = os.Stdout.Write(resp.Content)
	return err
}
