package site

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed static/** templates/*.html
var content embed.FS

// FS returns an http.FileSystem for the embedded stylesheets.
func FS() http.FileSystem {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// Expose the whole tree on error.
		return http.FS(content)
	}
	return http.FS(sub)
}

func parsePages() (*template.Template, error) {
	return template.ParseFS(content, "templates/*.html")
}
