// Package frontend serves the small documentation site bundled into the binary.
package frontend

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/shurcooL/httpgzip"
)

//go:embed public
var embeddedAssets embed.FS

// StaticHandler serves the embedded docs site with gzip negotiation.
func StaticHandler() http.Handler {
	fsys, err := fs.Sub(embeddedAssets, "public")
	if err != nil {
		log.Fatal().Err(err).Msg("could not get embedded filesystem")
	}

	return httpgzip.FileServer(http.FS(fsys), httpgzip.FileServerOptions{IndexHTML: true})
}
