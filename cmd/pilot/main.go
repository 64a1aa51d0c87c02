// Package main is the single-binary entrypoint for Pilot.
package main

import "github.com/BigPhill11/pilot-program-learn-sub001/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
