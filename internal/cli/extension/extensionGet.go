package extension

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

var cmdExtensionGet = &cobra.Command{
	Use:     "get <id>",
	Short:   "Get details on a specific extension",
	Example: `$ gofer extension get cron`,
	RunE:    extensionGet,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdExtension.AddCommand(cmdExtensionGet)
}

func extensionGet(_ *cobra.Command, args []string) error {
	id := args[0]

	cl.State.Fmt.Print("Retrieving extension")

	var resp struct {
		Extension models.Extension `json:"extension"`
	}
	err := cl.State.Request(http.MethodGet, extensionsPath+"/"+id, nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get extension: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Println(formatExtension(&resp.Extension, cl.State.Config.Detail))
	cl.State.Fmt.Finish()
	return nil
}

type extensionData struct {
	ID            string
	Image         string
	URL           string
	Started       string
	State         string
	Status        string
	Documentation string
}

func formatExtension(extension *models.Extension, detail bool) string {
	data := extensionData{
		ID:            color.BlueString(extension.Registration.ID),
		Image:         extension.Registration.Image,
		URL:           extension.URL,
		Started:       cliformat.UnixMilli(extension.Started, "Not yet", detail),
		State:         cliformat.ExtensionState(string(extension.State)),
		Status:        cliformat.NormalizeEnumValue(extension.Registration.Status, "Unknown"),
		Documentation: extension.Documentation,
	}

	const formatTmpl = `Extension {{.ID}} :: {{.State}} :: {{.Status}}

  Image: {{.Image}}
  Started {{.Started}}
{{- if .URL}}
  Listening on {{.URL}}
{{- end}}
{{- if .Documentation}}

Documentation:

{{.Documentation}}
{{- else}}

  No documentation found for this extension.
{{- end}}`

	var tpl bytes.Buffer
	t := template.Must(template.New("tmp").Parse(formatTmpl))
	_ = t.Execute(&tpl, data)
	return tpl.String()
}
