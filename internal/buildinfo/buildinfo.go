// Package buildinfo holds build-time version information.
package buildinfo

// Version is the application version, overridden at build time with
// -ldflags "-X github.com/averlon/fieldatlas/internal/buildinfo.Version=...".
var Version = "dev"
