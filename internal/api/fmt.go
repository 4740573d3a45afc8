package api

import (
	"fmt"
)

// Object and secret store engines expose a single flat keyspace, so every key is prefixed with
// its owning scope. Container names follow the same scheme since the scheduler requires them to
// be globally unique.

func pipelineObjectKey(namespace, pipeline, key string) string {
	return fmt.Sprintf("p_%s_%s_%s", namespace, pipeline, key)
}

func runObjectKey(namespace, pipeline string, run int64, key string) string {
	return fmt.Sprintf("r_%s_%s_%d_%s", namespace, pipeline, run, key)
}

func pipelineSecretKey(namespace, pipeline, key string) string {
	return fmt.Sprintf("p_%s_%s_%s", namespace, pipeline, key)
}

func globalSecretKey(key string) string {
	return fmt.Sprintf("g_%s", key)
}

func taskContainerID(namespace, pipeline string, run int64, task string) string {
	return fmt.Sprintf("%s_%s_%d_%s", namespace, pipeline, run, task)
}

func extensionContainerID(id string) string {
	return fmt.Sprintf("extension_%s", id)
}

func taskExecutionLogFilePath(dir, namespace, pipeline string, run int64, task string) string {
	return fmt.Sprintf("%s/%s_%s_%d_%s", dir, namespace, pipeline, run, task)
}
