// A pipeline showing task dependencies: a fan out from one starting task, a task that waits on
// a parent's success, and a cleanup task that runs no matter how its parent finished.
package main

import (
	"log"

	sdk "github.com/clintjedwards/gofer/sdk/go/config"
)

func main() {
	err := sdk.NewPipeline("dag_example", "DAG Example Pipeline").
		Description("Tasks can depend on other tasks finishing with particular statuses. "+
			"This pipeline fans out from a starting task and finishes with a cleanup task that "+
			"runs whether or not its parent succeeded.").
		Parallelism(2).
		Tasks(
			sdk.NewTask("setup", "ubuntu:latest").
				Description("Pretends to fetch dependencies and stores a shared value for later tasks.").
				Command("echo", "setting up"),
			sdk.NewTask("build", "ubuntu:latest").
				Description("Runs only after setup succeeded.").
				DependsOn("setup", sdk.RequiredParentStatusSuccess).
				Command("echo", "building"),
			sdk.NewTask("lint", "ubuntu:latest").
				Description("Runs alongside the build, also gated on setup.").
				DependsOn("setup", sdk.RequiredParentStatusSuccess).
				Command("echo", "linting"),
			sdk.NewTask("cleanup", "ubuntu:latest").
				Description("Runs regardless of how the build finished.").
				DependsOn("build", sdk.RequiredParentStatusAny).
				Command("echo", "cleaning up"),
		).Finish()
	if err != nil {
		log.Fatal(err)
	}
}
