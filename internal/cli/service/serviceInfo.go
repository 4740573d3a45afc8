package service

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdServiceInfo = &cobra.Command{
	Use:     "info",
	Short:   "Print information about the Gofer service",
	Example: `$ gofer service info`,
	RunE:    serviceInfo,
}

func init() {
	CmdService.AddCommand(cmdServiceInfo)
}

func serviceInfo(_ *cobra.Command, _ []string) error {
	cl.State.Fmt.Print("Retrieving service info")

	var info struct {
		Commit string `json:"commit"`
		Semver string `json:"semver"`
	}
	err := cl.State.Request(http.MethodGet, "/api/system/info", nil, nil, &info)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get service info: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	var summary struct {
		Namespaces         []string `json:"namespaces"`
		PipelineCount      int64    `json:"pipeline_count"`
		RunCount           int64    `json:"run_count"`
		TaskExecutionCount int64    `json:"task_execution_count"`
	}
	err = cl.State.Request(http.MethodGet, "/api/system/summary", nil, nil, &summary)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get service summary: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Println(fmt.Sprintf(`Gofer %s [%s]

  Namespaces: %d
  Pipelines: %d
  Runs: %d
  Task Executions: %d`,
		info.Semver, info.Commit, len(summary.Namespaces), summary.PipelineCount,
		summary.RunCount, summary.TaskExecutionCount))
	cl.State.Fmt.Finish()
	return nil
}
