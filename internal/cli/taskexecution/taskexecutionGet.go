package taskexecution

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"text/template"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cmdTaskExecutionGet = &cobra.Command{
	Use:     "get <pipeline_id> <run_id> <task_id>",
	Short:   "Get details on a specific task execution",
	Example: `$ gofer taskexecution get simple_pipeline 3 build`,
	RunE:    taskExecutionGet,
	Args:    cobra.ExactArgs(3),
}

func init() {
	CmdTaskExecution.AddCommand(cmdTaskExecutionGet)
}

func taskExecutionGet(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}
	taskID := args[2]

	cl.State.Fmt.Print("Retrieving task execution")

	var resp struct {
		TaskExecution models.TaskExecution `json:"task_execution"`
	}
	err = cl.State.Request(http.MethodGet,
		fmt.Sprintf("%s/%s", taskExecutionsPath(pipelineID, runID), taskID), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get task execution: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Println(formatTaskExecution(&resp.TaskExecution, cl.State.Config.Detail))
	cl.State.Fmt.Finish()
	return nil
}

type taskExecutionData struct {
	ID           string
	State        string
	Status       string
	StatusReason string
	Started      string
	Duration     string
	ExitCode     string
	Image        string
	LogsExpired  bool
	Dependencies []string
	EnvVars      []string
}

func formatTaskExecution(execution *models.TaskExecution, detail bool) string {
	data := taskExecutionData{
		ID:           color.BlueString(execution.ID),
		State:        cliformat.TaskExecutionState(string(execution.State)),
		Status:       cliformat.TaskExecutionStatus(string(execution.Status)),
		Started:      cliformat.UnixMilli(execution.Started, "Not yet", detail),
		Duration:     cliformat.Duration(execution.Started, execution.Ended),
		Image:        execution.Task.Image,
		LogsExpired:  execution.LogsExpired,
		Dependencies: cliformat.Dependencies(execution.Task.DependsOn),
	}

	if execution.StatusReason != nil {
		data.StatusReason = execution.StatusReason.Description
	}

	if execution.ExitCode != nil {
		data.ExitCode = strconv.FormatInt(*execution.ExitCode, 10)
	}

	for _, variable := range execution.Task.Variables {
		data.EnvVars = append(data.EnvVars, fmt.Sprintf("%s=%s [%s]", variable.Key, variable.Value, variable.Source))
	}
	sort.Strings(data.EnvVars)

	const formatTmpl = `Task Execution {{.ID}} :: {{.State}} :: {{.Status}}

  Image: {{.Image}}
  Started {{.Started}} and ran for {{.Duration}}
{{- if .ExitCode}}
  Exit Code: {{.ExitCode}}
{{- end}}
{{- if .StatusReason}}

  Status Reason: {{.StatusReason}}
{{- end}}
{{- if .Dependencies}}

  Depends On:
  {{- range $dep := .Dependencies}}
    • {{ $dep }}
  {{- end}}
{{- end}}
{{- if .EnvVars}}

  $ Environment Variables:
  {{- range $var := .EnvVars}}
    • {{ $var }}
  {{- end}}
{{- end}}
{{- if .LogsExpired}}

  Logs for this execution have passed their retention period and been removed.
{{- end}}`

	var tpl bytes.Buffer
	t := template.Must(template.New("tmp").Parse(formatTmpl))
	_ = t.Execute(&tpl, data)
	return tpl.String()
}
