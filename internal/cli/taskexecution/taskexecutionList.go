package taskexecution

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var cmdTaskExecutionList = &cobra.Command{
	Use:     "list <pipeline_id> <run_id>",
	Short:   "List all task executions for a run",
	Example: `$ gofer taskexecution list simple_pipeline 3`,
	RunE:    taskExecutionList,
	Args:    cobra.ExactArgs(2),
}

func init() {
	CmdTaskExecution.AddCommand(cmdTaskExecutionList)
}

func taskExecutionList(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Print("Retrieving task executions")

	var resp struct {
		TaskExecutions []models.TaskExecution `json:"task_executions"`
	}
	err = cl.State.Request(http.MethodGet, taskExecutionsPath(pipelineID, runID), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list task executions: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if len(resp.TaskExecutions) == 0 {
		cl.State.Fmt.Println(fmt.Sprintf("No task executions found for run %d", runID))
		cl.State.Fmt.Finish()
		return nil
	}

	sort.Slice(resp.TaskExecutions, func(i, j int) bool {
		return resp.TaskExecutions[i].Started < resp.TaskExecutions[j].Started
	})

	data := [][]string{}
	for _, execution := range resp.TaskExecutions {
		exitCode := ""
		if execution.ExitCode != nil {
			exitCode = strconv.FormatInt(*execution.ExitCode, 10)
		}

		data = append(data, []string{
			execution.ID,
			cliformat.UnixMilli(execution.Started, "Not yet", cl.State.Config.Detail),
			cliformat.Duration(execution.Started, execution.Ended),
			exitCode,
			cliformat.TaskExecutionState(string(execution.State)),
			cliformat.TaskExecutionStatus(string(execution.Status)),
		})
	}

	table := formatTable(data, !cl.State.Config.NoColor)

	cl.State.Fmt.Println(table)
	cl.State.Fmt.Finish()
	return nil
}

func formatTable(data [][]string, color bool) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	table.SetHeader([]string{"ID", "Started", "Duration", "Exit Code", "State", "Status"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(true)
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetRowSeparator("―")
	table.SetRowLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")

	if color {
		table.SetHeaderColor(
			tablewriter.Color(tablewriter.FgBlueColor),
			tablewriter.Color(tablewriter.FgBlueColor),
			tablewriter.Color(tablewriter.FgBlueColor),
			tablewriter.Color(tablewriter.FgBlueColor),
			tablewriter.Color(tablewriter.FgBlueColor),
			tablewriter.Color(tablewriter.FgBlueColor),
		)
		table.SetColumnColor(
			tablewriter.Color(tablewriter.FgYellowColor),
			tablewriter.Color(0),
			tablewriter.Color(0),
			tablewriter.Color(0),
			tablewriter.Color(0),
			tablewriter.Color(0),
		)
	}

	table.AppendBulk(data)

	table.Render()
	return tableString.String()
}
