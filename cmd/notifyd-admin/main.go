package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/notifyd/internal/bootstrap"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	logger := bootstrap.InitLogger(cfg.SlogLevel())
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(infraLoader(logger, &cfg))
	if execErr := root.ExecuteContext(ctx); execErr != nil {
		logger.ErrorContext(ctx, "command failed", "error", execErr)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}
