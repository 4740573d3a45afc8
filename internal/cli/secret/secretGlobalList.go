package secret

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdSecretGlobalList = &cobra.Command{
	Use:     "list",
	Short:   "List all global secrets",
	Example: `$ gofer secret global list`,
	RunE:    secretGlobalList,
}

func init() {
	cmdSecretGlobal.AddCommand(cmdSecretGlobalList)
}

func secretGlobalList(_ *cobra.Command, _ []string) error {
	cl.State.Fmt.Print("Retrieving secrets")

	var resp struct {
		Keys []models.GlobalSecretKey `json:"keys"`
	}
	err := cl.State.Request(http.MethodGet, globalSecretsPath, nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list secrets: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if len(resp.Keys) == 0 {
		cl.State.Fmt.Println("No global secrets found")
		cl.State.Fmt.Finish()
		return nil
	}

	data := [][]string{}
	for _, key := range resp.Keys {
		data = append(data, []string{
			key.Key,
			strings.Join(key.Namespaces, ", "),
			cliformat.UnixMilli(key.Created, "Unknown", cl.State.Config.Detail),
		})
	}

	table := formatKeyTable(data, []string{"Key", "Namespaces", "Created"}, !cl.State.Config.NoColor)

	cl.State.Fmt.Println(table)
	cl.State.Fmt.Finish()
	return nil
}
