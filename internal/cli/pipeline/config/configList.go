package config

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var cmdConfigList = &cobra.Command{
	Use:     "list <pipeline_id>",
	Short:   "List all configuration versions for a pipeline",
	Example: `$ gofer pipeline config list simple_pipeline`,
	RunE:    configList,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdConfig.AddCommand(cmdConfigList)
}

func configList(_ *cobra.Command, args []string) error {
	pipelineID := args[0]

	cl.State.Fmt.Print("Retrieving pipeline configs")

	var resp struct {
		Configs []models.PipelineConfig `json:"configs"`
	}
	err := cl.State.Request(http.MethodGet, configsPath(pipelineID), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list pipeline configs: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	data := [][]string{}
	for _, config := range resp.Configs {
		data = append(data, []string{
			"v" + strconv.FormatInt(config.Version, 10),
			cliformat.PipelineConfigState(string(config.State)),
			strconv.Itoa(len(config.Tasks)),
			cliformat.UnixMilli(config.Registered, "Unknown", cl.State.Config.Detail),
			cliformat.UnixMilli(config.Deprecated, "Still active", cl.State.Config.Detail),
		})
	}

	table := formatConfigTable(data, !cl.State.Config.NoColor)

	cl.State.Fmt.Println(table)
	cl.State.Fmt.Finish()
	return nil
}

func formatConfigTable(data [][]string, color bool) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	table.SetHeader([]string{"Version", "State", "Tasks", "Registered", "Deprecated"})
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
		)
		table.SetColumnColor(
			tablewriter.Color(tablewriter.FgYellowColor),
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
