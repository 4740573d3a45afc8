package secret

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
)

var cmdSecretGlobalPut = &cobra.Command{
	Use:   "put <key>",
	Short: "Store a global secret",
	Long: `Store a global secret.

The secret value is read from stdin so it stays out of shell history. The --namespaces flag
restricts which namespaces may read the secret; a trailing '*' acts as a prefix wildcard and
the default allows all namespaces.`,
	Example: `$ gofer secret global put some_key
$ gofer secret global put some_key --namespaces "dev_*,staging"`,
	RunE: secretGlobalPut,
	Args: cobra.ExactArgs(1),
}

func init() {
	cmdSecretGlobalPut.Flags().BoolP("force", "f", false, "overwrite the secret if the key already exists")
	cmdSecretGlobalPut.Flags().StringSliceP("namespaces", "n", []string{"*"}, "namespaces allowed to read this secret")
	cmdSecretGlobal.AddCommand(cmdSecretGlobalPut)
}

func secretGlobalPut(cmd *cobra.Command, args []string) error {
	key := args[0]

	force, _ := cmd.Flags().GetBool("force")
	namespaces, _ := cmd.Flags().GetStringSlice("namespaces")

	value, err := readSecretValue()
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not read secret value: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.Print("Storing secret")

	query := url.Values{}
	query.Set("force", strconv.FormatBool(force))

	body := struct {
		Key        string   `json:"key"`
		Secret     string   `json:"secret"`
		Namespaces []string `json:"namespaces"`
	}{
		Key:        key,
		Secret:     value,
		Namespaces: namespaces,
	}

	err = cl.State.Request(http.MethodPost, globalSecretsPath, query, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not store secret: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Stored global secret %q", key))
	cl.State.Fmt.Finish()
	return nil
}
