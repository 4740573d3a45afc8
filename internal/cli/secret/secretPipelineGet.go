package secret

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdSecretPipelineGet = &cobra.Command{
	Use:   "get <pipeline_id> <key>",
	Short: "Get metadata for a pipeline secret",
	Long: `Get metadata for a pipeline secret.

Secret values are never returned; only metadata about the stored secret.`,
	Example: `$ gofer secret pipeline get simple_pipeline some_key`,
	RunE:    secretPipelineGet,
	Args:    cobra.ExactArgs(2),
}

func init() {
	cmdSecretPipeline.AddCommand(cmdSecretPipelineGet)
}

func secretPipelineGet(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	key := args[1]

	cl.State.Fmt.Print("Retrieving secret")

	var resp struct {
		Metadata models.SecretStoreKey `json:"metadata"`
	}
	err := cl.State.Request(http.MethodGet, pipelineSecretsPath(pipelineID)+"/"+key, nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get secret: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Println(fmt.Sprintf("Secret %q :: created %s", resp.Metadata.Key,
		cliformat.UnixMilli(resp.Metadata.Created, "Unknown", cl.State.Config.Detail)))
	cl.State.Fmt.Finish()
	return nil
}
