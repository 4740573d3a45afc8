package service

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdServiceToggleEventIngress = &cobra.Command{
	Use:   "toggle-event-ingress",
	Short: "Allows the operator to control run ingress",
	Long: `Allows the operator to control whether it's possible for extensions to trigger new runs.

This setting toggles between on and off every time it is called.`,
	Example: `$ gofer service toggle-event-ingress`,
	RunE:    serviceToggleEventIngress,
}

func init() {
	CmdService.AddCommand(cmdServiceToggleEventIngress)
}

func serviceToggleEventIngress(_ *cobra.Command, _ []string) error {
	cl.State.Fmt.Print("Toggling event ingress")

	var resp struct {
		Value bool `json:"value"`
	}
	err := cl.State.Request(http.MethodPost, "/api/system/toggle-event-ingress", nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not toggle event ingress: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	if resp.Value {
		cl.State.Fmt.PrintSuccess("Extensions can no longer trigger runs")
	} else {
		cl.State.Fmt.PrintSuccess("Extensions can trigger runs again")
	}

	cl.State.Fmt.Finish()
	return nil
}
