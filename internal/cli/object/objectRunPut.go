package object

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdObjectRunPut = &cobra.Command{
	Use:   "put <pipeline_id> <run_id> <key> <file>",
	Short: "Store a run object",
	Long: `Store a run object.

Reads the object content from the given file; pass "-" to read from stdin. Run objects expire
automatically once enough newer runs have completed.`,
	Example: `$ gofer object run put simple_pipeline 3 some_key ./artifact.tar`,
	RunE:    objectRunPut,
	Args:    cobra.ExactArgs(4),
}

func init() {
	cmdObjectRunPut.Flags().BoolP("force", "f", false, "overwrite the object if the key already exists")
	cmdObjectRun.AddCommand(cmdObjectRunPut)
}

func objectRunPut(cmd *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}
	key := args[2]
	filePath := args[3]

	force, _ := cmd.Flags().GetBool("force")

	content, err := readObjectContent(filePath)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not read object content: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Print("Storing object")

	query := url.Values{}
	query.Set("force", strconv.FormatBool(force))

	body := struct {
		Key     string `json:"key"`
		Content []byte `json:"content"`
	}{
		Key:     key,
		Content: content,
	}

	err = cl.State.Request(http.MethodPost, runObjectsPath(pipelineID, runID), query, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not store object: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Stored object %q (%d bytes)", key, len(content)))
	cl.State.Fmt.Finish()
	return nil
}
