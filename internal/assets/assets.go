// Package assets holds the read-only static UI files the recovery server
// serves verbatim (index page, stylesheet, scripts). Content is embedded at
// build time; this package is deliberately data-only.
package assets

import (
	_ "embed"
)

//go:embed static/index.html
var indexHTML []byte

//go:embed static/style.css
var styleCSS []byte

//go:embed static/main.js
var mainJS []byte

//go:embed static/i18n.js
var i18nJS []byte

// Asset is one served file's bytes and MIME type.
type Asset struct {
	Data []byte
	Mime string
}

// byPath is the read-only path -> asset table the static-file and index
// handlers look up.
var byPath = map[string]Asset{
	"/":               {Data: indexHTML, Mime: "text/html"},
	"/index.html":     {Data: indexHTML, Mime: "text/html"},
	"/cgi-bin/luci":   {Data: indexHTML, Mime: "text/html"},
	"/cgi-bin/luci/":  {Data: indexHTML, Mime: "text/html"},
	"/style.css":      {Data: styleCSS, Mime: "text/css"},
	"/main.js":        {Data: mainJS, Mime: "application/javascript"},
	"/i18n.js":        {Data: i18nJS, Mime: "application/javascript"},
}

// Lookup returns the asset bound to path, if any.
func Lookup(path string) (Asset, bool) {
	a, ok := byPath[path]
	return a, ok
}
