package namespace

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdNamespaceUpdate = &cobra.Command{
	Use:     "update <id>",
	Short:   "Update details on a specific namespace",
	Example: `$ gofer namespace update my_namespace --description="my updated namespace"`,
	RunE:    namespaceUpdate,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdNamespaceUpdate.Flags().StringP("name", "n", "", "Humanized name for the namespace")
	cmdNamespaceUpdate.Flags().StringP("description", "d", "", "A short description for the namespace")
	CmdNamespace.AddCommand(cmdNamespaceUpdate)
}

func namespaceUpdate(cmd *cobra.Command, args []string) error {
	id := args[0]

	cl.State.Fmt.Print("Updating namespace")

	body := map[string]string{}
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		body["name"] = name
	}
	if description, _ := cmd.Flags().GetString("description"); description != "" {
		body["description"] = description
	}

	err := cl.State.Request(http.MethodPatch, "/api/namespaces/"+id, nil, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not update namespace: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Updated namespace %q", id))
	cl.State.Fmt.Finish()
	return nil
}
