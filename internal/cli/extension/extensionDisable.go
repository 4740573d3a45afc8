package extension

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdExtensionDisable = &cobra.Command{
	Use:     "disable <id>",
	Short:   "Disable an extension",
	Example: `$ gofer extension disable cron`,
	RunE:    extensionDisable,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdExtension.AddCommand(cmdExtensionDisable)
}

func extensionDisable(_ *cobra.Command, args []string) error {
	id := args[0]

	cl.State.Fmt.Print("Disabling extension")

	err := cl.State.Request(http.MethodPost, extensionsPath+"/"+id+"/disable", nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not disable extension: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Disabled extension %q", id))
	cl.State.Fmt.Finish()
	return nil
}
