package service

import (
	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/clintjedwards/gofer/internal/config"
	"github.com/spf13/cobra"
)

var cmdServicePrintEnv = &cobra.Command{
	Use:   "printenv",
	Short: "Print the list of environment variables the server looks for on startup",
	Long: `Print the list of environment variables the server looks for on startup.

This is helpful for setting variables for controlling how the server should work.`,
	Example: `$ gofer service printenv`,
	RunE:    servicePrintEnv,
}

func init() {
	CmdService.AddCommand(cmdServicePrintEnv)
}

func servicePrintEnv(_ *cobra.Command, _ []string) error {
	cl.State.Fmt.Finish()
	return config.PrintAPIEnvs()
}
