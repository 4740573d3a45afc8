package service

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdServiceTokensBootstrap = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the initial management token",
	Long: `Create the initial management token.

A fresh Gofer install has no tokens at all. This command mints the very first management token so
that further tokens can be created. It only works once; after the first management token exists
the endpoint refuses all callers.`,
	Example: `$ gofer service tokens bootstrap`,
	RunE:    serviceTokensBootstrap,
}

func init() {
	cmdServiceTokens.AddCommand(cmdServiceTokensBootstrap)
}

func serviceTokensBootstrap(_ *cobra.Command, _ []string) error {
	cl.State.Fmt.Print("Creating bootstrap token")

	var resp struct {
		TokenMetadata *models.Token `json:"token"`
		Secret        string        `json:"secret"`
	}
	err := cl.State.Request(http.MethodPost, "/api/tokens/bootstrap", nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not create bootstrap token: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess("Created bootstrap management token")
	cl.State.Fmt.Println(fmt.Sprintf("Secret: %s", resp.Secret))
	cl.State.Fmt.Println("Keep this somewhere safe; Gofer only stores a hash and cannot show it again.")
	cl.State.Fmt.Finish()
	return nil
}
