package event

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cmdEventGet = &cobra.Command{
	Use:     "get <id>",
	Short:   "Get details on a specific event",
	Example: `$ gofer event get 42`,
	RunE:    eventGet,
	Args:    cobra.ExactArgs(1),
}

func init() {
	CmdEvent.AddCommand(cmdEventGet)
}

func eventGet(_ *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse event id %q", args[0]))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Print("Retrieving event")

	var resp struct {
		Event apiEvent `json:"event"`
	}
	err = cl.State.Request(http.MethodGet, fmt.Sprintf("%s/%d", eventsPath, id), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get event: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Println(formatEventLine(&resp.Event, cl.State.Config.Detail))
	cl.State.Fmt.Finish()
	return nil
}

func formatEventLine(event *apiEvent, detail bool) string {
	return fmt.Sprintf("%s | %s | %s | %s",
		color.BlueString("#"+strconv.FormatInt(event.ID, 10)),
		cliformat.UnixMilli(event.Emitted, "Unknown", detail),
		cliformat.NormalizeEnumValue(event.Kind, "Unknown"),
		string(event.Details))
}
