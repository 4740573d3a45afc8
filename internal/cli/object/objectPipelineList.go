package object

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdObjectPipelineList = &cobra.Command{
	Use:   "list <pipeline_id>",
	Short: "List all objects for a pipeline",
	Long: `List all objects for a pipeline.

Keys are returned oldest first; the oldest keys are the next to be evicted when the pipeline
hits its object limit.`,
	Example: `$ gofer object pipeline list simple_pipeline`,
	RunE:    objectPipelineList,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdObjectPipeline.AddCommand(cmdObjectPipelineList)
}

func objectPipelineList(_ *cobra.Command, args []string) error {
	pipelineID := args[0]

	cl.State.Fmt.Print("Retrieving objects")

	var resp struct {
		Keys []models.ObjectStoreKey `json:"keys"`
	}
	err := cl.State.Request(http.MethodGet, pipelineObjectsPath(pipelineID), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list objects: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if len(resp.Keys) == 0 {
		cl.State.Fmt.Println(fmt.Sprintf("No objects found for pipeline %q", pipelineID))
		cl.State.Fmt.Finish()
		return nil
	}

	data := [][]string{}
	for _, key := range resp.Keys {
		data = append(data, []string{
			key.Key,
			cliformat.UnixMilli(key.Created, "Unknown", cl.State.Config.Detail),
		})
	}

	table := formatKeyTable(data, !cl.State.Config.NoColor)

	cl.State.Fmt.Println(table)
	cl.State.Fmt.Finish()
	return nil
}
