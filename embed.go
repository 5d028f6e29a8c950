package portal

import (
	"embed"
	"io/fs"

	"github.com/benbjohnson/hashfs"
)

//go:embed public/*
var embeddedAssets embed.FS

// newAssetFS returns the static assets with content-hashed names.
func newAssetFS() *hashfs.FS {
	sub, err := fs.Sub(embeddedAssets, "public")
	if err != nil {
		panic(err)
	}
	return hashfs.NewFS(sub)
}
