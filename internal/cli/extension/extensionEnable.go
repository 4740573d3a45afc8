package extension

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdExtensionEnable = &cobra.Command{
	Use:     "enable <id>",
	Short:   "Enable an extension",
	Example: `$ gofer extension enable cron`,
	RunE:    extensionEnable,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdExtension.AddCommand(cmdExtensionEnable)
}

func extensionEnable(_ *cobra.Command, args []string) error {
	id := args[0]

	cl.State.Fmt.Print("Enabling extension")

	err := cl.State.Request(http.MethodPost, extensionsPath+"/"+id+"/enable", nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not enable extension: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Enabled extension %q", id))
	cl.State.Fmt.Finish()
	return nil
}
