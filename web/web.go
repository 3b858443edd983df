// Package web embeds the browser assets served next to the watch page.
package web

import "embed"

//go:embed static
var StaticFS embed.FS
