// Package sdk holds build-time identity for the binary, overridden via
// -ldflags "-X github.com/tetrahub/tetralog/internal/sdk.Version=... -X .../sdk.GitCommit=..."
package sdk

var (
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown" //nolint:gochecknoglobals

	// Version of the program.
	Version = "0.1.0" //nolint:gochecknoglobals
)
