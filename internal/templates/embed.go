// Package templates embeds the server-rendered pages and HTMX fragments.
package templates

import "embed"

//go:embed *.html
var FS embed.FS
