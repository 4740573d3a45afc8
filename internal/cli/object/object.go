package object

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var CmdObject = &cobra.Command{
	Use:   "object",
	Short: "Manage objects",
	Long: `Manage objects.

The object store is a shared key-value bucket pipelines use to pass data between runs and
between tasks. Pipeline objects live until pushed out by newer ones; run objects expire after a
set number of newer runs.`,
}

var cmdObjectPipeline = &cobra.Command{
	Use:   "pipeline",
	Short: "Manage pipeline scoped objects",
}

var cmdObjectRun = &cobra.Command{
	Use:   "run",
	Short: "Manage run scoped objects",
}

func init() {
	CmdObject.AddCommand(cmdObjectPipeline)
	CmdObject.AddCommand(cmdObjectRun)
}

func pipelineObjectsPath(pipelineID string) string {
	return fmt.Sprintf("/api/namespaces/%s/pipelines/%s/objects", cl.State.DefaultNamespace(), pipelineID)
}

func runObjectsPath(pipelineID string, runID int64) string {
	return fmt.Sprintf("/api/namespaces/%s/pipelines/%s/runs/%d/objects",
		cl.State.DefaultNamespace(), pipelineID, runID)
}

// readObjectContent reads the object body from the given file path, or stdin when path is "-".
func readObjectContent(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}

	return os.ReadFile(path)
}

func formatKeyTable(data [][]string, color bool) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	table.SetHeader([]string{"Key", "Created"})
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
		)
		table.SetColumnColor(
			tablewriter.Color(tablewriter.FgYellowColor),
			tablewriter.Color(0),
		)
	}

	table.AppendBulk(data)

	table.Render()
	return tableString.String()
}
