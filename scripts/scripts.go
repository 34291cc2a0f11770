// Package scripts embeds the Risor scripts shipped with beguile: indent
// rule sets for the formatter and reports over the workspace index.
package scripts

import "embed"

// FS holds the bundled scripts, addressed as "indent/guix.risor" and so on.
//
//go:embed indent/*.risor report/*.risor
var FS embed.FS
