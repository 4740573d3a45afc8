package service

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdServiceTokensDelete = &cobra.Command{
	Use:     "delete <hash>",
	Short:   "Delete an api token",
	Example: `$ gofer service tokens delete some_long_token_hash`,
	RunE:    serviceTokensDelete,
	Args:    cobra.ExactArgs(1),
}

func init() {
	cmdServiceTokens.AddCommand(cmdServiceTokensDelete)
}

func serviceTokensDelete(_ *cobra.Command, args []string) error {
	hash := args[0]

	cl.State.Fmt.Print("Deleting token")

	body := struct {
		Hash string `json:"hash"`
	}{Hash: hash}

	err := cl.State.Request(http.MethodDelete, "/api/tokens/delete", nil, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not delete token: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess("Deleted token")
	cl.State.Fmt.Finish()
	return nil
}
