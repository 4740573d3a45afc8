// A debug task that sleeps for WAIT_DURATION, useful for exercising cancellation and timeouts.
package main

import (
	"log"
	"os"
	"time"
)

func main() {
	durationStr := os.Getenv("WAIT_DURATION")
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		log.Printf("could not parse WAIT_DURATION %q: %v", durationStr, err)
		os.Exit(42)
	}

	log.Printf("waiting %q before exiting", durationStr)
	time.Sleep(duration)
}
