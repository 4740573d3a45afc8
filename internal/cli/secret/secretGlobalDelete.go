package secret

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdSecretGlobalDelete = &cobra.Command{
	Use:     "delete <key>",
	Short:   "Remove a global secret",
	Example: `$ gofer secret global delete some_key`,
	RunE:    secretGlobalDelete,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdSecretGlobal.AddCommand(cmdSecretGlobalDelete)
}

func secretGlobalDelete(_ *cobra.Command, args []string) error {
	key := args[0]

	cl.State.Fmt.Print("Removing secret")

	err := cl.State.Request(http.MethodDelete, globalSecretsPath+"/"+key, nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not remove secret: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Removed global secret %q", key))
	cl.State.Fmt.Finish()
	return nil
}
