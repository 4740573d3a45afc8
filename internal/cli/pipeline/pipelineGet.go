package pipeline

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"text/template"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cmdPipelineGet = &cobra.Command{
	Use:     "get <id>",
	Short:   "Get details on a specific pipeline",
	Example: `$ gofer pipeline get simple_pipeline`,
	RunE:    pipelineGet,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdPipeline.AddCommand(cmdPipelineGet)
}

func pipelineGet(_ *cobra.Command, args []string) error {
	id := args[0]

	cl.State.Fmt.Print("Retrieving pipeline")

	var resp struct {
		Metadata models.PipelineMetadata `json:"metadata"`
		Config   *models.PipelineConfig  `json:"config"`
	}
	err := cl.State.Request(http.MethodGet, pipelinePath(id), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get pipeline: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	// The last few runs give a quick sense of whether the pipeline is healthy.
	query := url.Values{}
	query.Set("limit", "5")

	var runsResp struct {
		Runs []models.Run `json:"runs"`
	}
	err = cl.State.Request(http.MethodGet, pipelinePath(id)+"/runs", query, nil, &runsResp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get pipeline runs: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	output := formatPipeline(&resp.Metadata, resp.Config, runsResp.Runs, cl.State.Config.Detail)

	cl.State.Fmt.Println(output)
	cl.State.Fmt.Finish()
	return nil
}

type pipelineData struct {
	ID          string
	Name        string
	Description string
	State       string
	Version     int64
	Health      string
	Created     string
	Tasks       []taskData
	HasConfig   bool
}

type taskData struct {
	Name      string
	DependsOn []string
}

func formatPipeline(metadata *models.PipelineMetadata, config *models.PipelineConfig,
	recentRuns []models.Run, detail bool,
) string {
	statuses := []models.RunStatus{}
	for _, run := range recentRuns {
		statuses = append(statuses, run.Status)
	}

	data := pipelineData{
		ID:      color.BlueString(metadata.ID),
		State:   cliformat.PipelineState(string(metadata.State)),
		Health:  cliformat.Health(statuses, true),
		Created: cliformat.UnixMilli(metadata.Created, "Never", detail),
	}

	if config != nil {
		data.HasConfig = true
		data.Name = config.Name
		data.Description = config.Description
		data.Version = config.Version

		taskNames := []string{}
		for name := range config.Tasks {
			taskNames = append(taskNames, name)
		}
		sort.Strings(taskNames)

		for _, name := range taskNames {
			task := config.Tasks[name]
			data.Tasks = append(data.Tasks, taskData{
				Name:      color.BlueString("□ " + task.ID),
				DependsOn: cliformat.Dependencies(task.DependsOn),
			})
		}
	}

	const formatTmpl = `[{{.ID}}]{{if .HasConfig}} {{.Name}} :: v{{.Version}}{{end}} :: {{.State}} :: {{.Health}}

  Created {{.Created}}
{{- if .Description}}

  {{.Description}}
{{- end}}
{{- if .Tasks}}

  🗒 Tasks:
  {{- range $task := .Tasks}}
    {{ $task.Name }}
    {{- range $dependant := $task.DependsOn}}
      + {{ $dependant }}
    {{- end}}
  {{- end}}
{{- end}}`

	var tpl bytes.Buffer
	t := template.Must(template.New("tmp").Parse(formatTmpl))
	_ = t.Execute(&tpl, data)
	return tpl.String()
}
