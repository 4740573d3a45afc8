// Package cl contains global variables used across the cli package. Yeah its probably a bad pattern
// but it works and removes us from dependency hell.
package cl

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/clintjedwards/gofer/internal/config"
	"github.com/clintjedwards/polyfmt"
	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"
)

// Harness is a structure for values that all commands need access to.
type Harness struct {
	Fmt            polyfmt.Formatter
	Config         *config.CLI
	ConfigFilePath string

	httpClient *http.Client
}

// State holds values that aid in the lifetime of a command.
var State *Harness

// Init harness for command line functions, used to provide different functionality during the life of a command line run.
func InitState(cmd *cobra.Command) {
	// Including these in the pre run hook instead of in the enclosing/parent command definition
	// allows cobra to still print errors and usage for its own cli verifications, but
	// ignore our errors.
	cmd.SilenceUsage = true  // Don't print the usage if we get an upstream error
	cmd.SilenceErrors = true // Let us handle error printing ourselves

	// Now we need to provide the command line with some state which we use to display the spinner
	// and also make sure the command line inherits the proper variable chain(config file -> envvar -> flags)
	State = &Harness{}

	// This is a hack. Because the start command needs to use the --config global variable for its own purposes
	// we tell it to skip parsing as if its a CLI config and supply it with some defaults.
	if cmd.Name() == "start" && cmd.Parent().Name() == "service" {
		State.Config = &config.CLI{
			Format: "silent",
		}
	} else {
		configPath, _ := cmd.Flags().GetString("config")
		State.NewConfig(configPath)
	}

	// Initiate the formatter(this controls the command line output)
	format, _ := cmd.Flags().GetString("format")
	if format != "" {
		State.Config.Format = format
	}

	State.NewFormatter()

	overlayGlobalFlags(cmd)
}

// Flags are the last possible way to provide variables to the command line. For global variables we allow the user
// to specify them through envvars and configuration. Because of this we need to take whatever we have in the config
// from previous steps that retrieve them from those locations and then if the user has passed in a flag overwrite
// whatever those variables are.
func overlayGlobalFlags(cmd *cobra.Command) {
	// Now we include all other global flags into the config. Flags are always highest on the variable chain.
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor {
		color.NoColor = true // turn off color globally
		State.Config.NoColor = noColor
	}

	detail, _ := cmd.Flags().GetBool("detail")
	if detail {
		State.Config.Detail = detail
	}

	namespace, _ := cmd.Flags().GetString("namespace")
	if namespace != "" {
		State.Config.Namespace = namespace
	}

	host, _ := cmd.Flags().GetString("host")
	if host != "" {
		State.Config.Host = host
	}
}

func (s *Harness) NewFormatter() {
	clifmt, err := polyfmt.NewFormatter(polyfmt.Mode(s.Config.Format), polyfmt.DefaultOptions())
	if err != nil {
		log.Fatal(err)
	}

	s.Fmt = clifmt
}

func (s *Harness) NewConfig(configPath string) {
	config, err := config.InitCLIConfig(configPath, true)
	if err != nil {
		log.Fatal(err)
	}

	s.Config = config
	s.ConfigFilePath = configPath
}

// WriteConfig takes the current representation of config and writes it to the file.
func (s *Harness) WriteConfig() error {
	if s.ConfigFilePath == "" {
		homeDir, _ := os.UserHomeDir()
		s.ConfigFilePath = fmt.Sprintf("%s/%s", homeDir, ".gofer.hcl")
	}

	f := hclwrite.NewEmptyFile()
	body := f.Body()
	body.SetAttributeValue("namespace", cty.StringVal(s.Config.Namespace))
	body.SetAttributeValue("detail", cty.BoolVal(s.Config.Detail))
	body.SetAttributeValue("format", cty.StringVal(s.Config.Format))
	body.SetAttributeValue("host", cty.StringVal(s.Config.Host))
	body.SetAttributeValue("no_color", cty.BoolVal(s.Config.NoColor))
	body.SetAttributeValue("token", cty.StringVal(s.Config.Token))

	err := os.WriteFile(s.ConfigFilePath, f.Bytes(), 0o644)
	if err != nil {
		return err
	}

	return nil
}

// DefaultNamespace returns the namespace the command should run against; the --namespace flag and
// config file win over the builtin default.
func (s *Harness) DefaultNamespace() string {
	if s.Config.Namespace != "" {
		return s.Config.Namespace
	}

	return "default"
}

// HostURL returns the full base URL for the configured server host.
func (s *Harness) HostURL() string {
	host := s.Config.Host
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	return host
}

func (s *Harness) client() *http.Client {
	if s.httpClient != nil {
		return s.httpClient
	}

	tlsConfig := &tls.Config{}

	// Local development servers run on self-signed certs; requiring the user to install them
	// just to try things out would be mean.
	host, _, _ := strings.Cut(strings.TrimPrefix(s.HostURL(), "https://"), ":")
	if host == "localhost" || host == "127.0.0.1" {
		tlsConfig.InsecureSkipVerify = true
	}

	s.httpClient = &http.Client{
		Timeout: 180 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}

	return s.httpClient
}

// Websocket dials a streaming endpoint on the server. The caller owns the returned connection
// and must close it.
func (s *Harness) Websocket(path string, query url.Values) (*websocket.Conn, error) {
	endpoint, err := url.Parse(s.HostURL() + path)
	if err != nil {
		return nil, fmt.Errorf("malformed host: %w", err)
	}

	switch endpoint.Scheme {
	case "https":
		endpoint.Scheme = "wss"
	case "http":
		endpoint.Scheme = "ws"
	}

	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	tlsConfig := &tls.Config{}
	if endpoint.Hostname() == "localhost" || endpoint.Hostname() == "127.0.0.1" {
		tlsConfig.InsecureSkipVerify = true
	}

	dialer := websocket.Dialer{
		TLSClientConfig:  tlsConfig,
		HandshakeTimeout: 15 * time.Second,
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.Config.Token)

	conn, resp, err := dialer.Dial(endpoint.String(), header)
	if err != nil {
		if resp != nil {
			var errResp apiError
			_ = json.NewDecoder(resp.Body).Decode(&errResp)
			resp.Body.Close()
			if errResp.Detail != "" {
				return nil, fmt.Errorf("%s", errResp.Detail)
			}
		}

		return nil, fmt.Errorf("could not connect to server: %w", err)
	}

	return conn, nil
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Request performs a single JSON round trip against the Gofer API. The reqBody and respBody
// values may be nil for requests/responses without a payload.
func (s *Harness) Request(method, path string, query url.Values, reqBody, respBody any) error {
	endpoint, err := url.Parse(s.HostURL() + path)
	if err != nil {
		return fmt.Errorf("malformed host: %w", err)
	}

	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var payload io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}

		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, endpoint.String(), payload)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+s.Config.Token)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return fmt.Errorf("could not connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errResp apiError
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Detail != "" {
			return fmt.Errorf("%s", errResp.Detail)
		}
		if errResp.Title != "" {
			return fmt.Errorf("%s", errResp.Title)
		}

		return fmt.Errorf("server returned %s", resp.Status)
	}

	if respBody != nil {
		err = json.NewDecoder(resp.Body).Decode(respBody)
		if err != nil {
			return fmt.Errorf("could not decode response: %w", err)
		}
	}

	return nil
}
