package config

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cmdConfigGet = &cobra.Command{
	Use:   "get <pipeline_id> [version]",
	Short: "Get details on a pipeline configuration version",
	Long: `Get details on a pipeline configuration version.

If no version is given the latest version is returned.`,
	Example: `$ gofer pipeline config get simple_pipeline
$ gofer pipeline config get simple_pipeline 2`,
	RunE: configGet,
	Args: cobra.RangeArgs(1, 2),
}

func init() {
	CmdConfig.AddCommand(cmdConfigGet)
}

func configGet(_ *cobra.Command, args []string) error {
	pipelineID := args[0]

	version := int64(0) // Zero asks the server for the latest version.
	if len(args) == 2 {
		parsed, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			cl.State.Fmt.PrintErr(fmt.Sprintf("could not parse version %q", args[1]))
			cl.State.Fmt.Finish()
			return err
		}
		version = parsed
	}

	cl.State.Fmt.Print("Retrieving pipeline config")

	var resp struct {
		Config models.PipelineConfig `json:"config"`
	}
	err := cl.State.Request(http.MethodGet,
		fmt.Sprintf("%s/%d", configsPath(pipelineID), version), nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get pipeline config: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	config := resp.Config

	output := fmt.Sprintf("[%s] %s :: v%d :: %s\n\n  Registered %s\n",
		color.BlueString(config.Pipeline), config.Name, config.Version,
		cliformat.PipelineConfigState(string(config.State)),
		cliformat.UnixMilli(config.Registered, "Unknown", cl.State.Config.Detail))

	if config.Description != "" {
		output += fmt.Sprintf("\n  %s\n", config.Description)
	}

	taskNames := []string{}
	for name := range config.Tasks {
		taskNames = append(taskNames, name)
	}
	sort.Strings(taskNames)

	if len(taskNames) > 0 {
		output += "\n  🗒 Tasks:\n"
		for _, name := range taskNames {
			task := config.Tasks[name]
			output += fmt.Sprintf("    □ %s [%s]\n", color.BlueString(task.ID), task.Image)
			for _, dependant := range cliformat.Dependencies(task.DependsOn) {
				output += fmt.Sprintf("      + %s\n", dependant)
			}
		}
	}

	cl.State.Fmt.Println(output)
	cl.State.Fmt.Finish()
	return nil
}
