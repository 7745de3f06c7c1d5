// Package main is the single-binary entrypoint for TrendScout:
// the API server, the worker pool and the task CLI in one binary.
package main

import "github.com/trendscout-net/trendscout/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
