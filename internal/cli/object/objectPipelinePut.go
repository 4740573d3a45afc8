package object

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdObjectPipelinePut = &cobra.Command{
	Use:   "put <pipeline_id> <key> <file>",
	Short: "Store a pipeline object",
	Long: `Store a pipeline object.

Reads the object content from the given file; pass "-" to read from stdin. Storing a new key
may evict the pipeline's oldest objects once the per pipeline limit is reached.`,
	Example: `$ gofer object pipeline put simple_pipeline some_key ./artifact.tar
$ cat artifact.tar | gofer object pipeline put simple_pipeline some_key -`,
	RunE: objectPipelinePut,
	Args: cobra.ExactArgs(3),
}

func init() {
	cmdObjectPipelinePut.Flags().BoolP("force", "f", false, "overwrite the object if the key already exists")
	cmdObjectPipeline.AddCommand(cmdObjectPipelinePut)
}

func objectPipelinePut(cmd *cobra.Command, args []string) error {
	pipelineID := args[0]
	key := args[1]
	filePath := args[2]

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

	var resp struct {
		EvictedKeys []string `json:"evicted_keys"`
	}
	err = cl.State.Request(http.MethodPost, pipelineObjectsPath(pipelineID), query, body, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not store object: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if len(resp.EvictedKeys) > 0 {
		cl.State.Fmt.Println(fmt.Sprintf("Evicted older object(s): %s", strings.Join(resp.EvictedKeys, ", ")))
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Stored object %q (%d bytes)", key, len(content)))
	cl.State.Fmt.Finish()
	return nil
}
