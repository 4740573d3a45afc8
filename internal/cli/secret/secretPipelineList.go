package secret

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdSecretPipelineList = &cobra.Command{
	Use:     "list <pipeline_id>",
	Short:   "List all secrets for a pipeline",
	Example: `$ gofer secret pipeline list simple_pipeline`,
	RunE:    secretPipelineList,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdSecretPipeline.AddCommand(cmdSecretPipelineList)
}

func secretPipelineList(_ *cobra.Command, args []string) error {
	pipelineID := args[0]

	cl.State.Fmt.Print("Retrieving secrets")

	var resp struct {
		Keys []models.SecretStoreKey `json:"keys"`
	}
	err := cl.State.Request(http.MethodGet, pipelineSecretsPath(pipelineID), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list secrets: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if len(resp.Keys) == 0 {
		cl.State.Fmt.Println(fmt.Sprintf("No secrets found for pipeline %q", pipelineID))
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

	table := formatKeyTable(data, []string{"Key", "Created"}, !cl.State.Config.NoColor)

	cl.State.Fmt.Println(table)
	cl.State.Fmt.Finish()
	return nil
}
