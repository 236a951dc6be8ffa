// Command formgrid drives forms and grids from the terminal: it runs a form
// session against a schema, pages through a remote grid endpoint and lints
// schema documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "formgrid:", err)
		os.Exit(1)
	}
}
