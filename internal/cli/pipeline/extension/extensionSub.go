package extension

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdExtensionSub = &cobra.Command{
	Use:   "sub <pipeline_id> <extension_id> <label>",
	Short: "Subscribe a pipeline to an extension",
	Long: `Subscribe a pipeline to an extension.

The label is a pipeline chosen name for the subscription so that a pipeline can subscribe to the
same extension more than once. Extension specific settings are passed with the --setting flag.`,
	Example: `$ gofer pipeline extension sub simple_pipeline interval every_five_minutes -s every=5m`,
	RunE:    extensionSub,
	Args:    cobra.ExactArgs(3),
}

func init() {
	cmdExtensionSub.Flags().StringToStringP("setting", "s", nil, "extension specific settings for the subscription")
	CmdExtension.AddCommand(cmdExtensionSub)
}

func extensionSub(cmd *cobra.Command, args []string) error {
	pipelineID := args[0]
	extensionID := args[1]
	label := args[2]
	settings, _ := cmd.Flags().GetStringToString("setting")

	cl.State.Fmt.Print("Subscribing pipeline to extension")

	body := struct {
		ExtensionID string            `json:"extension_id"`
		Label       string            `json:"label"`
		Settings    map[string]string `json:"settings,omitempty"`
	}{
		ExtensionID: extensionID,
		Label:       label,
		Settings:    settings,
	}

	err := cl.State.Request(http.MethodPost, subscriptionsPath(pipelineID), nil, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not subscribe pipeline to extension: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Subscribed pipeline %q to extension %q as %q",
		pipelineID, extensionID, label))
	cl.State.Fmt.Finish()
	return nil
}
