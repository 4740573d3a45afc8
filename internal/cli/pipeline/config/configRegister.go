package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdConfigRegister = &cobra.Command{
	Use:   "register <pipeline_id> <file>",
	Short: "Register a new pipeline configuration version",
	Long: `Register a new pipeline configuration version.

The file must contain a JSON pipeline configuration document. If the pipeline does not exist yet it
is created; otherwise a new version is registered and promoted to live.`,
	Example: `$ gofer pipeline config register simple_pipeline ./simple_pipeline.json`,
	RunE:    configRegister,
	Args:    cobra.ExactArgs(2),
}

func init() {
	CmdConfig.AddCommand(cmdConfigRegister)
}

func configRegister(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	filePath := args[1]

	cl.State.Fmt.Print("Registering pipeline config")

	raw, err := os.ReadFile(filePath)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not read config file: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	var config json.RawMessage
	if err := json.Unmarshal(raw, &config); err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("config file is not valid JSON: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	body := struct {
		Config json.RawMessage `json:"config"`
	}{Config: config}

	var resp struct {
		Pipeline models.PipelineMetadata `json:"pipeline"`
		Version  int64                   `json:"version"`
	}
	err = cl.State.Request(http.MethodPost, configsPath(pipelineID), nil, body, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not register pipeline config: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Registered pipeline %q config v%d; now live",
		resp.Pipeline.ID, resp.Version))
	cl.State.Fmt.Finish()
	return nil
}
