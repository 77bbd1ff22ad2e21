package web

import (
	"embed"
	"io/fs"
	"net/http"
)

var (
	//go:embed static
	embeddedStaticFiles embed.FS

	//go:embed templates
	embeddedTemplates embed.FS
)

// subFS returns dir of fsys as http.FileSystem rooted at dir.
func subFS(fsys fs.FS, dir string) http.FileSystem {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		// dir is a compile time constant embedded above
		panic(err)
	}

	return http.FS(sub)
}
