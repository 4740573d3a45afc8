package service

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdServiceTokensDisable = &cobra.Command{
	Use:     "disable <hash>",
	Short:   "Disable an api token",
	Example: `$ gofer service tokens disable some_long_token_hash`,
	RunE:    serviceTokensDisable,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdServiceTokens.AddCommand(cmdServiceTokensDisable)
}

func serviceTokensDisable(_ *cobra.Command, args []string) error {
	hash := args[0]

	cl.State.Fmt.Print("Disabling token")

	body := struct {
		Hash string `json:"hash"`
	}{Hash: hash}

	err := cl.State.Request(http.MethodPost, "/api/tokens/disable", nil, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not disable token: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess("Disabled token")
	cl.State.Fmt.Finish()
	return nil
}
