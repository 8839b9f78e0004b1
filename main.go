package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/stupside/quire/cmd"
)

func main() {
	if slices.Contains(os.Args, "--debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.Root().Run(ctx, os.Args)
	switch {
	case err == nil:
	case context.Cause(ctx) != nil:
		// ledger entries are flushed per item, so a rerun resumes here
		slog.InfoContext(ctx, "interrupted, rerun to resume", "cause", context.Cause(ctx))
	default:
		slog.Error("quire failed", "error", err)
		os.Exit(cmd.ExitCode(err))
	}
}
