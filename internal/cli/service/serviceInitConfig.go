package service

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

//go:embed sampleConfig.hcl
var sampleConfig []byte

var cmdServiceInitConfig = &cobra.Command{
	Use:   "init-config",
	Short: "Create example server config file",
	Long: `Create example server config file.

This file can be used as a example starting point and be customized further. This file should not
be used to run production Gofer servers, but instead to be used as a jumping off point for what is
possible.`,
	Example: `$ gofer service init-config
$ gofer service init-config -f myServer.hcl`,
	RunE: serviceInitConfig,
}

func init() {
	cmdServiceInitConfig.Flags().StringP("filepath", "f", "./gofer.hcl", "path to file")
	CmdService.AddCommand(cmdServiceInitConfig)
}

func serviceInitConfig(cmd *cobra.Command, _ []string) error {
	filepath, _ := cmd.Flags().GetString("filepath")

	cl.State.Fmt.Print("Creating service config file")

	err := os.WriteFile(filepath, sampleConfig, 0o644)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not create service config file: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Created service config file %q", filepath))
	cl.State.Fmt.Finish()
	return nil
}
