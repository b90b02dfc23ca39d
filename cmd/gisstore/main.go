// Package main is the single-binary entrypoint for gisstore.
package main

import "github.com/maxent-labs/gisstore/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
