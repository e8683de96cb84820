// Package desktop holds the pieces of the webview host that do not need
// a window to run.
package desktop

import (
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/toqueteos/webbrowser"
)

// uiThread is the part of webview.WebView that schedules work on the
// window's thread.
type uiThread interface {
	Dispatch(f func())
}

// Poster runs relay deliveries on the webview's UI thread.
type Poster struct {
	ui     uiThread
	closed atomic.Bool
}

func NewPoster(ui uiThread) *Poster {
	return &Poster{ui: ui}
}

func (p *Poster) Post(fn func()) bool {
	if p.closed.Load() {
		return false
	}
	p.ui.Dispatch(fn)
	return true
}

// Close rejects further posts. Call it once the window loop returns.
func (p *Poster) Close() {
	p.closed.Store(true)
}

var openBrowser = webbrowser.Open

// ExternalLinks is injected into every page so links leaving the
// harness open in the system browser.
const ExternalLinks = `
document.addEventListener("click", function(e) {
    const a = e.target.closest("a");
    if (!a || !a.href) return;
    if (a.href.startsWith(location.origin)) return;
    e.preventDefault();
    openExternal(a.href);
});
`

// OpenExternal opens an http(s) link in the system browser.
func OpenExternal(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("parse %q: %w", link, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: unsupported scheme", link)
	}
	return openBrowser(u.String())
}
