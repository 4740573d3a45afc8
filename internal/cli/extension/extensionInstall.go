package extension

import (
	"fmt"
	"net/http"

	"github.com/clintjedwards/gofer/internal/cli/cl"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/spf13/cobra"
)

var cmdExtensionInstall = &cobra.Command{
	Use:   "install <id> <image>",
	Short: "Install an extension",
	Long: `Install an extension.

The id is how pipelines will refer to the extension when subscribing; the image is the container
image the server will run for it.`,
	Example: `$ gofer extension install cron ghcr.io/clintjedwards/gofer/extensions/cron:latest
$ gofer extension install interval ghcr.io/clintjedwards/gofer/extensions/interval:latest --var MIN_DURATION=1m`,
	RunE: extensionInstall,
	Args: cobra.ExactArgs(2),
}

func init() {
	cmdExtensionInstall.Flags().StringToStringP("var", "v", nil, "environment variables to pass to the extension container")
	cmdExtensionInstall.Flags().String("user", "", "registry username if the image is private")
	cmdExtensionInstall.Flags().String("pass", "", "registry password if the image is private")
	CmdExtension.AddCommand(cmdExtensionInstall)
}

func extensionInstall(cmd *cobra.Command, args []string) error {
	id := args[0]
	image := args[1]

	variables, _ := cmd.Flags().GetStringToString("var")
	user, _ := cmd.Flags().GetString("user")
	pass, _ := cmd.Flags().GetString("pass")

	var registryAuth *models.RegistryAuth
	if user != "" || pass != "" {
		registryAuth = &models.RegistryAuth{User: user, Pass: pass}
	}

	cl.State.Fmt.Print("Installing extension")

	body := struct {
		ID           string               `json:"id"`
		Image        string               `json:"image"`
		RegistryAuth *models.RegistryAuth `json:"registry_auth,omitempty"`
		Variables    map[string]string    `json:"variables"`
	}{
		ID:           id,
		Image:        image,
		RegistryAuth: registryAuth,
		Variables:    variables,
	}

	err := cl.State.Request(http.MethodPost, extensionsPath, nil, body, nil)
	if err != nil {
		cl.State.Fmt.PrintErr(fmt.Sprintf("could not install extension: %v", err))
		cl.State.Fmt.Finish()
		return err
	}

	cl.State.Fmt.PrintSuccess(fmt.Sprintf("Installed extension %q", id))
	cl.State.Fmt.Finish()
	return nil
}
