package namespace

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdNamespaceCreate = &cobra.Command{
	Use:   "create <id> <name>",
	Short: "Create a new namespace",
	Long: `Create a new namespace.

Namespaces act as divider lines between different sets of pipelines.`,
	Example: `$ gofer namespace create new_namespace "New Namespace"
$ gofer namespace create new_namespace "New Namespace" --description="my new namespace"`,
	RunE: namespaceCreate,
	Args: cobra.ExactArgs(2),
}

func init() {
	cmdNamespaceCreate.Flags().StringP("description", "d", "", "A short description for the namespace")
	CmdNamespace.AddCommand(cmdNamespaceCreate)
}

func namespaceCreate(cmd *cobra.Command, args []string) error {
	id := args[0]
	name := args[1]
	description, _ := cmd.Flags().GetString("description")

	cl.State.Fmt.Print("Creating namespace")

	body := struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}{
		ID:          id,
		Name:        name,
		Description: description,
	}

	err := cl.State.Request(http.MethodPost, "/api/namespaces", nil, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not create namespace: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Created namespace %q", id))
	cl.State.Fmt.Finish()
	return nil
}
