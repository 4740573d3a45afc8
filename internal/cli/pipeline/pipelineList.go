package pipeline

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

var cmdPipelineList = &cobra.Command{
	Use:     "list",
	Short:   "List all pipelines",
	Example: `$ gofer pipeline list`,
	RunE:    pipelineList,
}

func init() {
	cmdPipelineList.Flags().IntP("limit", "l", 10, "limit the amount of results returned")
	CmdPipeline.AddCommand(cmdPipelineList)
}

func pipelineList(cmd *cobra.Command, _ []string) error {
	cl.State.Fmt.Print("Retrieving pipelines")

	limit, _ := cmd.Flags().GetInt("limit")

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Pipelines []models.PipelineMetadata `json:"pipelines"`
	}
	err := cl.State.Request(http.MethodGet, pipelinesPath(), query, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list pipelines: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if len(resp.Pipelines) == 0 {
		cl.State.Fmt.Println(fmt.Sprintf("No pipelines found for namespace %q", cl.State.DefaultNamespace()))
		cl.State.Fmt.Finish()
		return nil
	}

	data := [][]string{}
	for _, pipeline := range resp.Pipelines {
		data = append(data, []string{
			pipeline.ID,
			cliformat.PipelineState(string(pipeline.State)),
			cliformat.UnixMilli(pipeline.Created, "Never", cl.State.Config.Detail),
			cliformat.UnixMilli(pipeline.Modified, "Never", cl.State.Config.Detail),
		})
	}

	table := formatPipelineTable(data, !cl.State.Config.NoColor)

	cl.State.Fmt.Println(table)
	cl.State.Fmt.Finish()
	return nil
}

func formatPipelineTable(data [][]string, color bool) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	table.SetHeader([]string{"ID", "State", "Created", "Last Modified"})
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
		)
		table.SetColumnColor(
			tablewriter.Color(tablewriter.FgYellowColor),
			tablewriter.Color(0),
			tablewriter.Color(0),
			tablewriter.Color(0),
		)
	}

	table.AppendBulk(data)

	table.Render()
	return tableString.String()
}
