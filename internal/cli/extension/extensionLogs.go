package extension

import (
	"fmt"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var cmdExtensionLogs = &cobra.Command{
	Use:     "logs <id>",
	Short:   "Stream logs for an extension container",
	Example: `$ gofer extension logs cron`,
	RunE:    extensionLogs,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdExtension.AddCommand(cmdExtensionLogs)
}

func extensionLogs(_ *cobra.Command, args []string) error {
	id := args[0]

	conn, err := cl.State.Websocket(extensionsPath+"/"+id+"/logs", nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not stream logs: %v", err))
		cl.State.Fmt.Finish()
		return err
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}

			cl.State.Fmt.PrintErr(fmt.Sprintf("lost connection to server: %v", err))
			cl.State.Fmt.Finish()
			return err
		}

		cl.State.Fmt.Println(string(message))
	}

	cl.State.Fmt.Finish()
	return nil
}
