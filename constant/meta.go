// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	Ovod    = "ovod"
	Version = "0.3.1"
)

// Populated by the linker on release builds.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// AsciiArtLogo is shown on the root help screen.
const AsciiArtLogo = `
  ▄▄▄  ▄   ▄  ▄▄▄  ▄▄▄▄
 █   █ █   █ █   █ █   █
 █   █  █ █  █   █ █   █
  ▀▀▀    ▀    ▀▀▀  ▀▀▀▀
`
