package extension

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cmdExtensionGet = &cobra.Command{
	Use:     "get <pipeline_id> <extension_id> <label>",
	Short:   "Get details on a pipeline's extension subscription",
	Example: `$ gofer pipeline extension get simple_pipeline interval every_five_minutes`,
	RunE:    extensionGet,
	Args:    cobra.ExactArgs(3),
}

func init() {
	CmdExtension.AddCommand(cmdExtensionGet)
}

func extensionGet(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	extensionID := args[1]
	label := args[2]

	cl.State.Fmt.Print("Retrieving subscription")

	var resp struct {
		Subscription models.PipelineExtensionSubscription `json:"subscription"`
	}
	err := cl.State.Request(http.MethodGet,
		fmt.Sprintf("%s/%s/%s", subscriptionsPath(pipelineID), extensionID, label), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get subscription: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	subscription := resp.Subscription

	output := fmt.Sprintf("[%s] extension %s :: %s\n",
		color.BlueString(subscription.Label), subscription.Extension,
		cliformat.SubscriptionStatus(string(subscription.Status)))

	if len(subscription.Settings) > 0 {
		output += "\n  Settings:\n"

		keys := []string{}
		for key := range subscription.Settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			output += fmt.Sprintf("    %s = %s\n", key, subscription.Settings[key])
		}
	}

	if subscription.StatusReason.Description != "" {
		output += fmt.Sprintf("\n  Status Reason: %s\n", subscription.StatusReason.Description)
	}

	cl.State.Fmt.Println(output)
	cl.State.Fmt.Finish()
	return nil
}
