// Package data embeds excflow's bundled stub library so the binary ships
// its standard-library and common third-party exception declarations
// without needing a data directory alongside it at runtime.
package data

import "embed"

//go:embed stubs/*.yaml
var StubsFS embed.FS
