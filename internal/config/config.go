// Package config controls how Gofer is configured. Configuration is loaded in three layers, each
// layer overwriting the last: hardcoded defaults, an HCL configuration file, and finally
// environment variables.
package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"
)

// searchFilePaths returns the first path in the list that exists and is not a directory.
func searchFilePaths(paths ...string) string {
	for _, path := range paths {
		if path == "" {
			continue
		}

		stat, err := os.Stat(path)
		if err != nil {
			continue
		}

		if stat.IsDir() {
			continue
		}

		return path
	}

	return ""
}

// getEnvVarsFromStruct recursively walks a config struct and returns the environment variable
// name for every leaf field. Nested blocks contribute their name as an additional prefix.
func getEnvVarsFromStruct(prefix string, fields []*structs.Field) []string {
	output := []string{}

	for _, field := range fields {
		if field.Tag("ignored") == "true" {
			continue
		}

		switch field.Kind() {
		case reflect.Ptr, reflect.Struct:
			subFields := structs.Fields(field.Value())
			subPrefix := prefix + camelToUpperSnake(field.Name()) + "_"
			output = append(output, getEnvVarsFromStruct(subPrefix, subFields)...)
		default:
			output = append(output, prefix+camelToUpperSnake(field.Name()))
		}
	}

	return output
}

// camelToUpperSnake converts a Go field name to the envconfig naming scheme.
// Acronym runs stay together so that APIHost becomes API_HOST.
func camelToUpperSnake(name string) string {
	var b strings.Builder

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || (nextLower && runes[i-1] >= 'A' && runes[i-1] <= 'Z') {
				b.WriteRune('_')
			}
		}
		b.WriteRune(r)
	}

	return strings.ToUpper(b.String())
}
