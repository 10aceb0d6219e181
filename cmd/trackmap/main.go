package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/skylink/cmd/trackmap/app"
	"github.com/roman-kulish/skylink/internal/logging"
)

func main() {
	logger, _ := logging.New(os.Stdout, logging.FormatText, slog.LevelInfo, "trackmap")

	config, err := app.NewConfigFromCLI()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
