// A debug task that slowly prints a block of text, useful for exercising log streaming.
package main

import (
	"log"
	"os"
	"strings"
	"time"
)

var corpus = `
There is an art to building pipelines, and like most arts it is mostly
the craft of deleting things. Every stage you do not have is a stage
that cannot flake, cannot hang, and cannot page you at three in the
morning. The best pipeline is a short one; the second best is one whose
logs actually tell you what happened.

This task exists to produce logs and nothing else. If you can read
this line by line as it streams, the plumbing between the scheduler,
the log collector, and your terminal is working.
`

func main() {
	if header := os.Getenv("LOGS_HEADER"); header != "" {
		log.Println(header)
	}

	for _, line := range strings.Split(corpus, "\n") {
		log.Println(line)
		time.Sleep(time.Second)
	}
}
