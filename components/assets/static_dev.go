//go:build dev

package assets

import (
	"io/fs"
	"os"
)

// DistFS reads the harness from disk so edits show up without a rebuild.
// FLURRYBRIDGE_ASSETS_DIR overrides the default location.
func DistFS() fs.FS {
	dir := "components/assets/dist"
	if env := os.Getenv("FLURRYBRIDGE_ASSETS_DIR"); env != "" {
		dir = env
	}
	return os.DirFS(dir)
}
