package main

import (
	"context"
	"os"
	"os/signal"

	"aptcheck/pkg/cli"
)

// Populated by the build via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)

	cli.SetBuildInfo(version, commit)
	code := cli.Execute(ctx)
	cancel()
	os.Exit(code)
}
