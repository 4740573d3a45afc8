package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/hcl"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type CLI struct {
	Namespace string `koanf:"namespace"`
	Detail    bool   `koanf:"detail"`
	Format    string `koanf:"format"`
	Host      string `koanf:"host"`
	NoColor   bool   `koanf:"no_color"`
	Token     string `koanf:"token"`
}

// DefaultCLIConfig returns the base settings that user configuration files and environment
// variables layer over.
func DefaultCLIConfig() *CLI {
	return &CLI{
		Host:   "localhost:8080",
		Format: "pretty",
	}
}

// InitCLIConfig assembles the command line configuration in layers. The configuration file is
// found by checking, in order: the -config flag path, ~/.gofer.hcl, and ~/.config/gofer.hcl,
// with the GOFER_CLI_CONFIG_PATH env var overriding all of those. Environment variables
// prefixed GOFER_CLI_ are then loaded on top, so every file key can also be set from the
// environment and the env value wins on conflict.
func InitCLIConfig(flagPath string, loadDefaults bool) (*CLI, error) {
	var config *CLI

	if loadDefaults {
		config = DefaultCLIConfig()
	}

	homeDir, _ := os.UserHomeDir()
	path := searchFilePaths(
		flagPath,
		filepath.Join(homeDir, ".gofer.hcl"),
		filepath.Join(homeDir, ".config", "gofer.hcl"),
	)

	if envPath := os.Getenv("GOFER_CLI_CONFIG_PATH"); envPath != "" {
		path = envPath
	}

	configParser := koanf.New(".")

	if path != "" {
		err := configParser.Load(file.Provider(path), hcl.Parser(true))
		if err != nil {
			return nil, err
		}
	}

	err := configParser.Load(env.Provider("GOFER_CLI_", "__", func(s string) string {
		newStr := strings.TrimPrefix(s, "GOFER_CLI_")
		newStr = strings.ToLower(newStr)
		return newStr
	}), nil)
	if err != nil {
		return nil, err
	}

	err = configParser.Unmarshal("", &config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
