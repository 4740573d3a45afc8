package namespace

import (
	"bytes"
	"fmt"
	"net/http"
	"text/template"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cmdNamespaceGet = &cobra.Command{
	Use:     "get <id>",
	Short:   "Get details on a specific namespace",
	Example: `$ gofer namespace get new_namespace`,
	RunE:    namespaceGet,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdNamespace.AddCommand(cmdNamespaceGet)
}

func namespaceGet(_ *cobra.Command, args []string) error {
	id := args[0]

	cl.State.Fmt.Print("Retrieving namespace")

	var resp struct {
		Namespace models.Namespace `json:"namespace"`
	}
	err := cl.State.Request(http.MethodGet, "/api/namespaces/"+id, nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get namespace: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	output, err := formatNamespace(&resp.Namespace, cl.State.Config.Detail)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not render namespace: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Println(output)
	cl.State.Fmt.Finish()
	return nil
}

type data struct {
	ID          string
	Name        string
	Description string
	Created     string
}

func formatNamespace(namespace *models.Namespace, detail bool) (string, error) {
	data := data{
		ID:          color.BlueString(namespace.ID),
		Name:        namespace.Name,
		Description: namespace.Description,
		Created:     cliformat.UnixMilli(namespace.Created, "Never", detail),
	}

	const formatTmpl = `[{{.ID}}] {{.Name}} :: Created {{.Created}}
	{{.Description}}`

	var tpl bytes.Buffer
	t := template.Must(template.New("tmp").Parse(formatTmpl))
	_ = t.Execute(&tpl, data)
	return tpl.String(), nil
}
