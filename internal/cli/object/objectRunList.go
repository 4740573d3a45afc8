package object

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdObjectRunList = &cobra.Command{
	Use:     "list <pipeline_id> <run_id>",
	Short:   "List all objects for a run",
	Example: `$ gofer object run list simple_pipeline 3`,
	RunE:    objectRunList,
	Args:    cobra.ExactArgs(2),
}

func init() {
	cmdObjectRun.AddCommand(cmdObjectRunList)
}

func objectRunList(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Print("Retrieving objects")

	var resp struct {
		Keys []models.ObjectStoreKey `json:"keys"`
	}
	err = cl.State.Request(http.MethodGet, runObjectsPath(pipelineID, runID), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list objects: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if len(resp.Keys) == 0 {
		cl.State.Fmt.Println(fmt.Sprintf("No objects found for run %d", runID))
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
