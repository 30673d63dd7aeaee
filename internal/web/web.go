package web

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"selected": func(current, option string) bool {
		return strings.EqualFold(current, option)
	},
}

// Templates parses every page and the shared layout blocks.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
