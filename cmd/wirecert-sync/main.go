package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdout, os.Stderr)
	if err := app.execute(ctx, os.Args[1:]); err != nil {
		app.logger().Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// logger returns the configured logger, or the default one before configuration ran.
func (a *app) logger() *slog.Logger {
	if a.log == nil {
		return slog.Default()
	}
	return a.log
}
