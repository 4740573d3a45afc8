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

var cmdSecretGlobalGet = &cobra.Command{
	Use:   "get <key>",
	Short: "Get metadata for a global secret",
	Long: `Get metadata for a global secret.

Secret values are never returned; only metadata about the stored secret.`,
	Example: `$ gofer secret global get some_key`,
	RunE:    secretGlobalGet,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdSecretGlobal.AddCommand(cmdSecretGlobalGet)
}

func secretGlobalGet(_ *cobra.Command, args []string) error {
	key := args[0]

	cl.State.Fmt.Print("Retrieving secret")

	var resp struct {
		Metadata models.GlobalSecretKey `json:"metadata"`
	}
	err := cl.State.Request(http.MethodGet, globalSecretsPath+"/"+key, nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get secret: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Println(fmt.Sprintf("Secret %q :: namespaces [%s] :: created %s", resp.Metadata.Key,
		strings.Join(resp.Metadata.Namespaces, ", "),
		cliformat.UnixMilli(resp.Metadata.Created, "Unknown", cl.State.Config.Detail)))
	cl.State.Fmt.Finish()
	return nil
}
