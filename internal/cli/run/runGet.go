package run

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

var cmdRunGet = &cobra.Command{
	Use:     "get <pipeline_id> <run_id>",
	Short:   "Get details on a specific run",
	Example: `$ gofer run get simple_pipeline 3`,
	RunE:    runGet,
	Args:    cobra.ExactArgs(2),
}

func init() {
	CmdRun.AddCommand(cmdRunGet)
}

func runGet(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Print("Retrieving run")

	var resp struct {
		Run models.Run `json:"run"`
	}
	err = cl.State.Request(http.MethodGet,
		fmt.Sprintf("%s/%d", runsPath(pipelineID), runID), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get run: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	var executionsResp struct {
		TaskExecutions []models.TaskExecution `json:"task_executions"`
	}
	err = cl.State.Request(http.MethodGet,
		fmt.Sprintf("%s/%d/tasks", runsPath(pipelineID), runID), nil, nil, &executionsResp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get task executions: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	output := formatRun(&resp.Run, executionsResp.TaskExecutions, cl.State.Config.Detail)

	cl.State.Fmt.Println(output)
	cl.State.Fmt.Finish()
	return nil
}

type runData struct {
	ID             string
	Version        int64
	State          string
	Status         string
	StatusReason   string
	Started        string
	Duration       string
	InitiatorName  string
	InitiatorWhy   string
	TaskExecutions []taskExecutionData
}

type taskExecutionData struct {
	ID       string
	State    string
	Status   string
	Duration string
}

func formatRun(run *models.Run, executions []models.TaskExecution, detail bool) string {
	data := runData{
		ID:            color.BlueString("#" + strconv.FormatInt(run.ID, 10)),
		Version:       run.Version,
		State:         cliformat.RunState(string(run.State)),
		Status:        cliformat.RunStatus(string(run.Status)),
		Started:       cliformat.UnixMilli(run.Started, "Not yet", detail),
		Duration:      cliformat.Duration(run.Started, run.Ended),
		InitiatorName: run.Initiator.Name,
		InitiatorWhy:  run.Initiator.Reason,
	}

	if run.StatusReason != nil {
		data.StatusReason = run.StatusReason.Description
	}

	sort.Slice(executions, func(i, j int) bool { return executions[i].Started < executions[j].Started })

	for _, execution := range executions {
		data.TaskExecutions = append(data.TaskExecutions, taskExecutionData{
			ID:       color.BlueString(execution.ID),
			State:    cliformat.TaskExecutionState(string(execution.State)),
			Status:   cliformat.TaskExecutionStatus(string(execution.Status)),
			Duration: cliformat.Duration(execution.Started, execution.Ended),
		})
	}

	const formatTmpl = `Run {{.ID}} :: v{{.Version}} :: {{.State}} :: {{.Status}}

  Started {{.Started}} and ran for {{.Duration}}
  Initiated by {{.InitiatorName}}{{if .InitiatorWhy}} ({{.InitiatorWhy}}){{end}}
{{- if .StatusReason}}

  Status Reason: {{.StatusReason}}
{{- end}}
{{- if .TaskExecutions}}

  🗒 Task Executions:
  {{- range $execution := .TaskExecutions}}
    □ {{ $execution.ID }} :: {{ $execution.State }} :: {{ $execution.Status }} :: {{ $execution.Duration }}
  {{- end}}
{{- end}}`

	var tpl bytes.Buffer
	t := template.Must(template.New("tmp").Parse(formatTmpl))
	_ = t.Execute(&tpl, data)
	return tpl.String()
}
