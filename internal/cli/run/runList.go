package run

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var cmdRunList = &cobra.Command{
	Use:     "list <pipeline_id>",
	Short:   "List all runs for a pipeline",
	Example: `$ gofer run list simple_pipeline`,
	RunE:    runList,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdRunList.Flags().IntP("limit", "l", 10, "limit the amount of results returned")
	CmdRun.AddCommand(cmdRunList)
}

func runList(cmd *cobra.Command, args []string) error {
	pipelineID := args[0]

	cl.State.Fmt.Print("Retrieving runs")

	limit, _ := cmd.Flags().GetInt("limit")

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Runs []models.Run `json:"runs"`
	}
	err := cl.State.Request(http.MethodGet, runsPath(pipelineID), query, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list runs: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if len(resp.Runs) == 0 {
		cl.State.Fmt.Println(fmt.Sprintf("No runs found for pipeline %q", pipelineID))
		cl.State.Fmt.Finish()
		return nil
	}

	data := [][]string{}
	for _, run := range resp.Runs {
		data = append(data, []string{
			strconv.FormatInt(run.ID, 10),
			"v" + strconv.FormatInt(run.Version, 10),
			cliformat.UnixMilli(run.Started, "Not yet", cl.State.Config.Detail),
			cliformat.Duration(run.Started, run.Ended),
			cliformat.RunState(string(run.State)),
			cliformat.RunStatus(string(run.Status)),
			run.Initiator.Name,
		})
	}

	table := formatRunTable(data, !cl.State.Config.NoColor)

	cl.State.Fmt.Println(table)
	cl.State.Fmt.Finish()
	return nil
}

func formatRunTable(data [][]string, color bool) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	table.SetHeader([]string{"ID", "Version", "Started", "Duration", "State", "Status", "Initiated By"})
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
			tablewriter.Color(tablewriter.FgBlueColor),
		)
		table.SetColumnColor(
			tablewriter.Color(tablewriter.FgYellowColor),
			tablewriter.Color(0),
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
