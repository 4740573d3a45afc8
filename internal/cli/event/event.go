package event

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var CmdEvent = &cobra.Command{
	Use:   "event",
	Short: "Inspect server events",
	Long: `Inspect server events.

Gofer emits an event for every noteworthy state change: runs starting, tasks finishing,
namespaces being created and so on. Events are retained for a configurable window and can be
replayed or followed live.`,
}

// The server serializes event details per kind; the command line treats them as opaque JSON so
// it never lags behind newly added kinds.
type apiEvent struct {
	ID      int64           `json:"id"`
	Kind    string          `json:"kind"`
	Details json.RawMessage `json:"details"`
	Emitted uint64          `json:"emitted"`
}

const eventsPath = "/api/events"
