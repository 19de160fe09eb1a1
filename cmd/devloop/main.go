// Command devloop runs common development tasks and the devcontainer
// smoke test.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/deixis/devloop/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr, &cli.RootOptions{})
	stop()
	os.Exit(code)
}
