// Package web holds the server-rendered templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var TemplateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// StaticFiles serves the assets under /static/.
var StaticFiles fs.FS = staticFiles
