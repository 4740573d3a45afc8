package secret

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdSecretPipelineDelete = &cobra.Command{
	Use:     "delete <pipeline_id> <key>",
	Short:   "Remove a pipeline secret",
	Example: `$ gofer secret pipeline delete simple_pipeline some_key`,
	RunE:    secretPipelineDelete,
	Args:    cobra.ExactArgs(2),
}

func init() {
	cmdSecretPipeline.AddCommand(cmdSecretPipelineDelete)
}

func secretPipelineDelete(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	key := args[1]

	cl.State.Fmt.Print("Removing secret")

	err := cl.State.Request(http.MethodDelete, pipelineSecretsPath(pipelineID)+"/"+key, nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not remove secret: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Removed secret %q", key))
	cl.State.Fmt.Finish()
	return nil
}
