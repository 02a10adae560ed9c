// Package web holds the HTML templates served by the api.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var FS embed.FS

// Parse parses every embedded template with funcs available.
func Parse(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(FS, "templates/*.tmpl")
}
