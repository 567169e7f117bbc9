// nudge fixes mistyped shell commands.
package main

import (
	"os"

	"nudge/cmd"
	"nudge/internal/middleware"
)

var (
	// Version is set during build via ldflags
	Version = "dev"
	// BuildTime is set during build via ldflags
	BuildTime = "unknown"
	// Commit is set during build via ldflags
	Commit = "unknown"
)

func main() {
	cmd.Version = Version
	cmd.BuildTime = BuildTime
	cmd.Commit = Commit

	os.Exit(middleware.Run(cmd.Execute))
}
