package extension

import (
	"fmt"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

// CmdExtension is the parent for all pipeline extension subscription commands.
var CmdExtension = &cobra.Command{
	Use:   "extension",
	Short: "Manage a pipeline's extension subscriptions",
	Long: `Manage a pipeline's extension subscriptions.

Subscribing a pipeline to an extension allows that extension to start runs on the pipeline's
behalf. For example subscribing to the cron extension makes the pipeline run on a schedule.`,
}

func subscriptionsPath(pipelineID string) string {
	return fmt.Sprintf("/api/namespaces/%s/pipelines/%s/subscriptions", cl.State.DefaultNamespace(), pipelineID)
}
