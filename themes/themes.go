// Package themes embeds the default blog theme.
package themes

import (
	"embed"
	"io/fs"
)

// DefaultName names the embedded theme.
const DefaultName = "default"

//go:embed all:default
var files embed.FS

// Default returns the embedded theme root, holding layouts/, assets/ and theme.json.
func Default() fs.FS {
	sub, err := fs.Sub(files, DefaultName)
	if err != nil {
		panic(err)
	}
	return sub
}
