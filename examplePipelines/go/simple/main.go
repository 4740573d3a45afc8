// The simplest possible pipeline: one task, one command. Build and register it with:
//
//	go run main.go > simple.json
//	gofer pipeline config register simple simple.json
package main

import (
	"log"

	sdk "github.com/clintjedwards/gofer/sdk/go/config"
)

func main() {
	err := sdk.NewPipeline("simple", "Simple Pipeline").
		Description("A single task pipeline that prints a greeting and exits. "+
			"Veterans of CI/CD tooling should find this pattern familiar; tasks are containers "+
			"and this one is plain Ubuntu running a shell command.").
		Tasks(
			sdk.NewTask("simple_task", "ubuntu:latest").
				Description("Prints a hello message and exits.").
				Command("echo", "Hello from Gofer!"),
		).Finish()
	if err != nil {
		log.Fatal(err)
	}
}
