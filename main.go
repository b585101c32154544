// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/yonosemanana/calclick/cmd"
)

// main is the entry point for the CalClick application.
func main() {
	// Set up a context that listens for interrupt signals (SIGINT, SIGTERM)
	// for graceful shutdown: the run loop drains and resources are released
	// before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.ExecuteContext(ctx)
}
