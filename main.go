package main

import (
	"os"

	"httpcraft/cmd"

	// Registers the built-in oauth2 plugin.
	_ "httpcraft/internal/plugin/oauth2"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd.SetVersion(version)
	os.Exit(cmd.Execute())
}
