package secret

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var cmdSecretPipelinePut = &cobra.Command{
	Use:   "put <pipeline_id> <key>",
	Short: "Store a pipeline secret",
	Long: `Store a pipeline secret.

The secret value is read from stdin so it stays out of shell history. Pipe it in or type it at
the prompt.`,
	Example: `$ gofer secret pipeline put simple_pipeline some_key
$ cat secret.txt | gofer secret pipeline put simple_pipeline some_key`,
	RunE: secretPipelinePut,
	Args: cobra.ExactArgs(2),
}

func init() {
	cmdSecretPipelinePut.Flags().BoolP("force", "f", false, "overwrite the secret if the key already exists")
	cmdSecretPipeline.AddCommand(cmdSecretPipelinePut)
}

// readSecretValue collects the secret from stdin, hiding input when attached to a terminal.
func readSecretValue() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("Enter secret value: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}

		return string(raw), nil
	}

	raw, err := os.ReadFile("/dev/stdin")
	if err != nil {
		return "", err
	}

	return strings.TrimSuffix(string(raw), "\n"), nil
}

func secretPipelinePut(cmd *cobra.Command, args []string) error {
	pipelineID := args[0]
	key := args[1]

	force, _ := cmd.Flags().GetBool("force")

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
		Key    string `json:"key"`
		Secret string `json:"secret"`
	}{
		Key:    key,
		Secret: value,
	}

	err = cl.State.Request(http.MethodPost, pipelineSecretsPath(pipelineID), query, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not store secret: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Stored secret %q", key))
	cl.State.Fmt.Finish()
	return nil
}
