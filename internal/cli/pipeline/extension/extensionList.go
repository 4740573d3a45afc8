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
	Use:     "list <pipeline_id>",
	Short:   "List a pipeline's extension subscriptions",
	Example: `$ gofer pipeline extension list simple_pipeline`,
	RunE:    extensionList,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdExtension.AddCommand(cmdExtensionList)
}

func extensionList(_ *cobra.Command, args []string) error {
	pipelineID := args[0]

	cl.State.Fmt.Print("Retrieving subscriptions")

	var resp struct {
		Subscriptions []models.PipelineExtensionSubscription `json:"subscriptions"`
	}
	err := cl.State.Request(http.MethodGet, subscriptionsPath(pipelineID), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not list subscriptions: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	data := [][]string{}
	for _, subscription := range resp.Subscriptions {
		data = append(data, []string{
			subscription.Extension,
			subscription.Label,
			cliformat.SubscriptionStatus(string(subscription.Status)),
		})
	}

	table := formatSubscriptionTable(data, !cl.State.Config.NoColor)

	cl.State.Fmt.Println(table)
	cl.State.Fmt.Finish()
	return nil
}

func formatSubscriptionTable(data [][]string, color bool) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	table.SetHeader([]string{"Extension", "Label", "Status"})
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
		)
		table.SetColumnColor(
			tablewriter.Color(tablewriter.FgYellowColor),
			tablewriter.Color(0),
			tablewriter.Color(0),
		)
	}

	table.AppendBulk(data)

	table.Render()
	return tableString.String()
}
