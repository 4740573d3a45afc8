package service

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdServiceTokensCreate = &cobra.Command{
	Use:   "create <kind>",
	Short: "Create a new api token",
	Long: `Create a new api token.

Management tokens act as admin tokens and can access all routes. Client tokens can only access the
namespaces they are assigned.`,
	Example: `$ gofer service tokens create client --namespace default
$ gofer service tokens create management --expires 720h`,
	RunE: serviceTokensCreate,
	Args: cobra.ExactArgs(1),
}

func init() {
	cmdServiceTokensCreate.Flags().StringSliceP("namespaces", "n", []string{"default"},
		"namespaces this token will have access to; supports simple regexs")
	cmdServiceTokensCreate.Flags().StringToStringP("metadata", "m", nil, "extra key=value information to attach to the token")
	cmdServiceTokensCreate.Flags().StringP("expires", "e", "8760h", "how long the token is valid for; golang duration string")
	cmdServiceTokens.AddCommand(cmdServiceTokensCreate)
}

func serviceTokensCreate(cmd *cobra.Command, args []string) error {
	kind := args[0]
	namespaces, _ := cmd.Flags().GetStringSlice("namespaces")
	metadata, _ := cmd.Flags().GetStringToString("metadata")
	expires, _ := cmd.Flags().GetString("expires")

	cl.State.Fmt.Print("Creating token")

	body := struct {
		Kind       string            `json:"kind"`
		Namespaces []string          `json:"namespaces"`
		Metadata   map[string]string `json:"metadata"`
		Expires    string            `json:"expires"`
	}{
		Kind:       kind,
		Namespaces: namespaces,
		Metadata:   metadata,
		Expires:    expires,
	}

	var resp struct {
		TokenMetadata *models.Token `json:"token"`
		Secret        string        `json:"secret"`
	}
	err := cl.State.Request(http.MethodPost, "/api/tokens", nil, body, &resp)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not create token: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Created %s token", kind))
	cl.State.Fmt.Println(fmt.Sprintf("Secret: %s", resp.Secret))
	cl.State.Fmt.Println("Keep this somewhere safe; Gofer only stores a hash and cannot show it again.")
	cl.State.Fmt.Finish()
	return nil
}
