package namespace

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

var cmdNamespaceList = &cobra.Command{
	Use:     "list",
	Short:   "List all namespaces",
	Example: `$ gofer namespace list`,
	RunE:    namespaceList,
}

func init() {
	cmdNamespaceList.Flags().IntP("limit", "l", 10, "limit the amount of results returned")
	CmdNamespace.AddCommand(cmdNamespaceList)
}

func namespaceList(cmd *cobra.Command, _ []string) error {
	cl.State.Fmt.Print("Retrieving namespaces")

	limit, _ := cmd.Flags().GetInt("limit")

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Namespaces []models.Namespace `json:"namespaces"`
	}
	err := cl.State.Request(http.MethodGet, "/api/namespaces", query, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list namespaces: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	data := [][]string{}
	for _, namespace := range resp.Namespaces {
		data = append(data, []string{
			namespace.ID,
			namespace.Name,
			namespace.Description,
			cliformat.UnixMilli(namespace.Created, "Never", cl.State.Config.Detail),
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

	table.SetHeader([]string{"ID", "Name", "Description", "Created"})
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
