// Command server is the test-server entrypoint binary. It delegates
// everything to the internal app package to keep main small and
// lint-friendly.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"testserver/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Entrypoint(ctx); err != nil {
		slog.Error("server.exit", "err", err)
		os.Exit(1)
	}
}
