package storage

import (
	"os"

	"github.com/rs/zerolog/log"
)

func tempFile() string {
	f, err := os.CreateTemp("", "gofer-storage-test-*.db")
	if err != nil {
		log.Fatal().Err(err).Msg("could not create temp file for test")
	}
	defer f.Close()

	return f.Name()
}
