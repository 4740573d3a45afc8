package service

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var cmdServiceTokensList = &cobra.Command{
	Use:     "list",
	Short:   "List api tokens for a namespace",
	Example: `$ gofer service tokens list`,
	RunE:    serviceTokensList,
}

func init() {
	cmdServiceTokens.AddCommand(cmdServiceTokensList)
}

func serviceTokensList(_ *cobra.Command, _ []string) error {
	cl.State.Fmt.Print("Retrieving tokens")

	query := url.Values{}
	query.Set("namespace", cl.State.DefaultNamespace())

	var resp struct {
		Tokens []*models.Token `json:"tokens"`
	}
	err := cl.State.Request(http.MethodGet, "/api/tokens", query, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list tokens: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	data := [][]string{}
	for _, token := range resp.Tokens {
		disabled := "No"
		if token.Disabled {
			disabled = "Yes"
		}

		data = append(data, []string{
			token.Hash[:12],
			string(token.Kind),
			cliformat.SliceJoin(token.Namespaces, "None"),
			cliformat.UnixMilli(token.Created, "Unknown", cl.State.Config.Detail),
			cliformat.UnixMilli(token.Expires, "Never", cl.State.Config.Detail),
			disabled,
		})
	}

	table := formatTokenTable(data, !cl.State.Config.NoColor)

	cl.State.Fmt.Println(table)
	cl.State.Fmt.Finish()
	return nil
}

func formatTokenTable(data [][]string, color bool) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	table.SetHeader([]string{"Hash", "Kind", "Namespaces", "Created", "Expires", "Disabled"})
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
