// Package webui provides the embedded translation page served at "/".
package webui

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var staticFS embed.FS

// StaticFS returns the embedded static files rooted at static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// the embed path is fixed at build time
		panic(err)
	}
	return sub
}

// Index returns the translation page.
func Index() []byte {
	data, err := fs.ReadFile(StaticFS(), "index.html")
	if err != nil {
		panic(err)
	}
	return data
}
