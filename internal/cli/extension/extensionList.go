package extension

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var cmdExtensionList = &cobra.Command{
	Use:     "list",
	Short:   "List all installed extensions",
	Example: `$ gofer extension list`,
	RunE:    extensionList,
}

func init() {
	CmdExtension.AddCommand(cmdExtensionList)
}

func extensionList(_ *cobra.Command, _ []string) error {
	cl.State.Fmt.Print("Retrieving extensions")

	var resp struct {
		Extensions []models.Extension `json:"extensions"`
	}
	err := cl.State.Request(http.MethodGet, extensionsPath, nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list extensions: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if len(resp.Extensions) == 0 {
		cl.State.Fmt.Println("No extensions installed")
		cl.State.Fmt.Finish()
		return nil
	}

	data := [][]string{}
	for _, extension := range resp.Extensions {
		data = append(data, []string{
			extension.Registration.ID,
			extension.Registration.Image,
			extension.URL,
			cliformat.UnixMilli(extension.Started, "Not yet", cl.State.Config.Detail),
			cliformat.ExtensionState(string(extension.State)),
			cliformat.NormalizeEnumValue(extension.Registration.Status, "Unknown"),
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

	table.SetHeader([]string{"ID", "Image", "URL", "Started", "State", "Status"})
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
