package main

import (
	"os"

	"github.com/clintjedwards/gofer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
