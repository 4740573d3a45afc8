package service

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdServiceRepairOrphan = &cobra.Command{
	Use:   "repair-orphan <pipeline_id> <run_id>",
	Short: "Repair a run stuck in an unfinished state",
	Long: `Repair a run stuck in an unfinished state.

A run can get orphaned if the service dies at an inopportune moment while the run is still in flight.
This command re-attaches the internal monitoring for the run so it can be driven to completion.`,
	Example: `$ gofer service repair-orphan simple_pipeline 4`,
	RunE:    serviceRepairOrphan,
	Args:    cobra.ExactArgs(2),
}

func init() {
	CmdService.AddCommand(cmdServiceRepairOrphan)
}

func serviceRepairOrphan(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse run id %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Print("Repairing orphaned run")

	body := struct {
		NamespaceID string `json:"namespace_id"`
		PipelineID  string `json:"pipeline_id"`
		RunID       int64  `json:"run_id"`
	}{
		NamespaceID: cl.State.DefaultNamespace(),
		PipelineID:  pipelineID,
		RunID:       runID,
	}

	err = cl.State.Request(http.MethodPost, "/api/system/repair-orphan", nil, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not repair orphaned run: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Repaired run %d in pipeline %q", runID, pipelineID))
	cl.State.Fmt.Finish()
	return nil
}
