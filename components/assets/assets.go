// Package assets serves the host harness page used to drive the bridge
// from a browser or webview.
package assets

import (
	"io/fs"
)

const IndexFile = "index.html"

// Index returns the harness page.
func Index() ([]byte, error) {
	return fs.ReadFile(DistFS(), IndexFile)
}
