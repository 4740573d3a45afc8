package service

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	cliformat "github.com/clintjedwards/gofer/internal/cli/format"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdServiceTokensWhoami = &cobra.Command{
	Use:     "whoami",
	Short:   "Show details about the token currently being used",
	Example: `$ gofer service tokens whoami`,
	RunE:    serviceTokensWhoami,
}

func init() {
	cmdServiceTokens.AddCommand(cmdServiceTokensWhoami)
}

func serviceTokensWhoami(_ *cobra.Command, _ []string) error {
	cl.State.Fmt.Print("Retrieving token details")

	var resp struct {
		TokenMetadata *models.Token `json:"token_metadata"`
	}
	err := cl.State.Request(http.MethodGet, "/api/tokens/whoami", nil, nil, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not get token details: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	token := resp.TokenMetadata

	cl.State.Fmt.Println(fmt.Sprintf(`[%s] token
  Namespaces: %s
  Created: %s
  Expires: %s`,
		token.Kind,
		cliformat.SliceJoin(token.Namespaces, "None"),
		cliformat.UnixMilli(token.Created, "Unknown", cl.State.Config.Detail),
		cliformat.UnixMilli(token.Expires, "Never", cl.State.Config.Detail)))
	cl.State.Fmt.Finish()
	return nil
}
