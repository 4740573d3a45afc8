package extension

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdExtensionUnsub = &cobra.Command{
	Use:     "unsub <pipeline_id> <extension_id> <label>",
	Short:   "Unsubscribe a pipeline from an extension",
	Example: `$ gofer pipeline extension unsub simple_pipeline interval every_five_minutes`,
	RunE:    extensionUnsub,
	Args:    cobra.ExactArgs(3),
}

func init() {
	CmdExtension.AddCommand(cmdExtensionUnsub)
}

func extensionUnsub(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	extensionID := args[1]
	label := args[2]

	cl.State.Fmt.Print("Unsubscribing pipeline from extension")

	err := cl.State.Request(http.MethodDelete,
		fmt.Sprintf("%s/%s/%s", subscriptionsPath(pipelineID), extensionID, label), nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not unsubscribe pipeline from extension: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Unsubscribed pipeline %q from extension %q",
		pipelineID, extensionID))
	cl.State.Fmt.Finish()
	return nil
}
