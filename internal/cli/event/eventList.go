package event

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var cmdEventList = &cobra.Command{
	Use:   "list",
	Short: "List stored events",
	Long: `List stored events.

Replays the event history oldest first. Pass --follow to stay connected and print new events as
they happen, --reverse to replay newest first, and --filter to restrict output to specific event
kinds.`,
	Example: `$ gofer event list
$ gofer event list --follow
$ gofer event list --filter completed_run,started_run`,
	RunE: eventList,
}

func init() {
	cmdEventList.Flags().BoolP("follow", "f", false, "stay connected and print live events")
	cmdEventList.Flags().Bool("reverse", false, "replay history newest first")
	cmdEventList.Flags().StringSlice("filter", nil, "only print events of the given kinds")
	CmdEvent.AddCommand(cmdEventList)
}

func eventList(cmd *cobra.Command, _ []string) error {
	follow, _ := cmd.Flags().GetBool("follow")
	reverse, _ := cmd.Flags().GetBool("reverse")
	filter, _ := cmd.Flags().GetStringSlice("filter")

	query := url.Values{}
	query.Set("history", "true")
	query.Set("reverse", strconv.FormatBool(reverse))
	if len(filter) > 0 {
		query.Set("filter", strings.Join(filter, ","))
	}

	conn, err := cl.State.Websocket(eventsPath, query)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not stream events: %v", err))
		cl.State.Fmt.Finish()
		return err
	}
	defer conn.Close()

	for {
		// The stream has no end-of-history marker; when not following, a short quiet period
		// after the replay is treated as the end.
		if !follow {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		}

		var event apiEvent
		err := conn.ReadJSON(&event)
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}

			if !follow {
				break
			}

			cl.State.Fmt.PrintErr(fmt.Sprintf("lost connection to server: %v", err))
			cl.State.Fmt.Finish()
			return err
		}

		cl.State.Fmt.Println(formatEventLine(&event, cl.State.Config.Detail))
	}

	cl.State.Fmt.Finish()
	return nil
}
