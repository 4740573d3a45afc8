package config

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdConfigDelete = &cobra.Command{
	Use:   "delete <pipeline_id> <version>",
	Short: "Delete a pipeline configuration version",
	Long: `Delete a pipeline configuration version.

The live version and the last remaining version of a pipeline cannot be deleted.`,
	Example: `$ gofer pipeline config delete simple_pipeline 1`,
	RunE:    configDelete,
	Args:    cobra.ExactArgs(2),
}

func init() {
	CmdConfig.AddCommand(cmdConfigDelete)
}

func configDelete(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	version, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse version %q", args[1]))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Print("Deleting pipeline config")

	err = cl.State.Request(http.MethodDelete,
		fmt.Sprintf("%s/%d", configsPath(pipelineID), version), nil, nil, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not delete pipeline config: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Deleted pipeline %q config v%d", pipelineID, version))
	cl.State.Fmt.Finish()
	return nil
}
