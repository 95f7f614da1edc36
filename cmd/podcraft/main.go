package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apresai/podcraft/internal/cli"
	"github.com/apresai/podcraft/internal/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := observability.InitTracer(ctx, "podcraft", cli.Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tracing disabled: %v\n", err)
	} else if tp != nil {
		defer tp.Shutdown(context.Background())
	}

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
