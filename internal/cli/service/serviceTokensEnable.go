package service

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdServiceTokensEnable = &cobra.Command{
	Use:     "enable <hash>",
	Short:   "Enable a disabled api token",
	Example: `$ gofer service tokens enable some_long_token_hash`,
	RunE:    serviceTokensEnable,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdServiceTokens.AddCommand(cmdServiceTokensEnable)
}

func serviceTokensEnable(_ *cobra.Command, args []string) error {
	hash := args[0]

	cl.State.Fmt.Print("Enabling token")

	body := struct {
		Hash string `json:"hash"`
	}{Hash: hash}

	err := cl.State.Request(http.MethodPost, "/api/tokens/enable", nil, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not enable token: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess("Enabled token")
	cl.State.Fmt.Finish()
	return nil
}
