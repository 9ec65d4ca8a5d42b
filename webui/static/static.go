// Package static embeds the browser side of the form: the page, its script
// and its stylesheet.
package static

import "embed"

// FS holds the assets under files/.
//
//go:embed files
var FS embed.FS
