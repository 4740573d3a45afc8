package secret

import (
	"fmt"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var CmdSecret = &cobra.Command{
	Use:   "secret",
	Short: "Manage secrets",
	Long: `Manage secrets.

Pipeline secrets belong to a single pipeline and can be interpolated into its task environment
variables. Global secrets are managed by administrators and shared across namespaces.`,
}

var cmdSecretPipeline = &cobra.Command{
	Use:   "pipeline",
	Short: "Manage pipeline scoped secrets",
}

var cmdSecretGlobal = &cobra.Command{
	Use:   "global",
	Short: "Manage global secrets; requires a management token",
}

func init() {
	CmdSecret.AddCommand(cmdSecretPipeline)
	CmdSecret.AddCommand(cmdSecretGlobal)
}

func pipelineSecretsPath(pipelineID string) string {
	return fmt.Sprintf("/api/namespaces/%s/pipelines/%s/secrets", cl.State.DefaultNamespace(), pipelineID)
}

const globalSecretsPath = "/api/secrets/global"

func formatKeyTable(data [][]string, headers []string, color bool) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	table.SetHeader(headers)
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
		headerColors := []tablewriter.Colors{}
		columnColors := []tablewriter.Colors{tablewriter.Color(tablewriter.FgYellowColor)}
		for i := range headers {
			headerColors = append(headerColors, tablewriter.Color(tablewriter.FgBlueColor))
			if i > 0 {
				columnColors = append(columnColors, tablewriter.Color(0))
			}
		}
		table.SetHeaderColor(headerColors...)
		table.SetColumnColor(columnColors...)
	}

	table.AppendBulk(data)

	table.Render()
	return tableString.String()
}
