package object

import (
	"fmt"
	"net/http"
	"os"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdObjectPipelineGet = &cobra.Command{
	Use:   "get <pipeline_id> <key>",
	Short: "Fetch a pipeline object",
	Long: `Fetch a pipeline object.

The raw object content is written to stdout so it can be piped or redirected.`,
	Example: `$ gofer object pipeline get simple_pipeline some_key > object.bin`,
	RunE:    objectPipelineGet,
	Args:    cobra.ExactArgs(2),
}

func init() {
	cmdObjectPipeline.AddCommand(cmdObjectPipelineGet)
}

func objectPipelineGet(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	key := args[1]

	cl.State.Fmt.Print("Retrieving object")

	var resp struct {
		Content []byte `json:"content"`
	}
	err := cl.State.Request(http.MethodGet, pipelineObjectsPath(pipelineID)+"/"+key, nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get object: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Finish()

	_, err = os.Stdout.Write(resp.Content)
	return err
}
